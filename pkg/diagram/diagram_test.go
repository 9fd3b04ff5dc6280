package diagram

import (
	"strings"
	"testing"
)

const sampleJSON = `{
  "name": "checkout",
  "nodes": [
    {"id": "web", "label": "Web", "x": 0, "y": 0, "width": 140, "height": 52},
    {"id": "api", "label": "API", "x": 300, "y": 0, "width": 140, "height": 52}
  ],
  "edges": [
    {"id": "web-api", "source": "web", "target": "api"}
  ],
  "view": {"scale": 1.5, "offset_x": 10, "offset_y": -4}
}`

func TestParseJSON(t *testing.T) {
	d, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if d.Name != "checkout" {
		t.Errorf("Name = %q", d.Name)
	}
	if len(d.Nodes) != 2 || len(d.Edges) != 1 {
		t.Fatalf("got %d nodes, %d edges", len(d.Nodes), len(d.Edges))
	}
	if d.View.Scale != 1.5 || d.View.OffsetX != 10 || d.View.OffsetY != -4 {
		t.Errorf("View = %+v", d.View)
	}

	n, ok := d.NodeByID("api")
	if !ok || n.X != 300 || n.Width != 140 {
		t.Errorf("NodeByID(api) = %+v, %v", n, ok)
	}
	if _, ok := d.EdgeByID("web-api"); !ok {
		t.Error("EdgeByID(web-api) not found")
	}
}

func TestParseJSONDefaultsScale(t *testing.T) {
	d, err := ParseJSON([]byte(`{"nodes": [], "edges": []}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if d.View.Scale != 1 {
		t.Errorf("default scale = %g, want 1", d.View.Scale)
	}
}

func TestToJSONRoundTrip(t *testing.T) {
	d, err := ParseJSON([]byte(sampleJSON))
	if err != nil {
		t.Fatal(err)
	}
	data, err := ToJSON(d, true)
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseJSON(data)
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if again.String() != d.String() || again.View != d.View {
		t.Errorf("round trip changed diagram: %s %+v", again, again.View)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Diagram
		wantErr string
	}{
		{
			name: "dangling edge is allowed",
			build: func() *Diagram {
				d := New("x")
				d.AddNode(Node{ID: "a", Width: 10, Height: 10})
				d.AddEdge(Edge{ID: "e", Source: "a", Target: "ghost"})
				return d
			},
		},
		{
			name: "duplicate node",
			build: func() *Diagram {
				d := New("x")
				d.Nodes = append(d.Nodes, Node{ID: "a", Width: 1, Height: 1}, Node{ID: "a", Width: 1, Height: 1})
				return d
			},
			wantErr: "duplicate node",
		},
		{
			name: "zero size",
			build: func() *Diagram {
				d := New("x")
				d.AddNode(Node{ID: "a"})
				return d
			},
			wantErr: "non-positive size",
		},
		{
			name: "empty endpoint",
			build: func() *Diagram {
				d := New("x")
				d.AddEdge(Edge{ID: "e", Source: "a"})
				return d
			},
			wantErr: "empty endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.build().Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestAddNodeReplaces(t *testing.T) {
	d := New("x")
	d.AddNode(Node{ID: "a", X: 1, Width: 1, Height: 1})
	d.AddNode(Node{ID: "a", X: 5, Width: 1, Height: 1})
	if len(d.Nodes) != 1 || d.Nodes[0].X != 5 {
		t.Errorf("Nodes = %+v", d.Nodes)
	}
	if !d.RemoveNode("a") || d.RemoveNode("a") {
		t.Error("RemoveNode should succeed once")
	}
}

func TestBounds(t *testing.T) {
	d := New("x")
	d.AddNode(Node{ID: "a", X: -10, Y: 5, Width: 20, Height: 10})
	d.AddNode(Node{ID: "b", X: 100, Y: -5, Width: 40, Height: 30})
	minX, minY, maxX, maxY := d.Bounds()
	if minX != -10 || minY != -5 || maxX != 140 || maxY != 25 {
		t.Errorf("Bounds = %g,%g,%g,%g", minX, minY, maxX, maxY)
	}
}

func TestViewRoundTrip(t *testing.T) {
	v := View{Scale: 0.75, OffsetX: -120.5, OffsetY: 33}
	got, err := ParseView(GenerateView(v))
	if err != nil {
		t.Fatalf("ParseView: %v", err)
	}
	if got != v {
		t.Errorf("got %+v, want %+v", got, v)
	}
}

func TestParseViewErrors(t *testing.T) {
	if _, err := ParseView("[view]\nscale = wide\n"); err == nil {
		t.Error("expected error for non-numeric scale")
	}
	if _, err := ParseView("[view]\nscale = -2\n"); err == nil {
		t.Error("expected error for negative scale")
	}
	v, err := ParseView("# empty\n[other]\nscale = 9\n")
	if err != nil {
		t.Fatal(err)
	}
	if v.Scale != 1 {
		t.Errorf("keys outside [view] should be ignored, scale = %g", v.Scale)
	}
}
