package diagram

import (
	"encoding/json"
	"fmt"
)

// jsonDiagram is the JSON representation of a diagram snapshot.
type jsonDiagram struct {
	Name  string    `json:"name,omitempty"`
	Nodes []Node    `json:"nodes"`
	Edges []Edge    `json:"edges"`
	View  *jsonView `json:"view,omitempty"`
}

type jsonView struct {
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// ParseJSON parses a diagram from JSON and validates it.
func ParseJSON(data []byte) (*Diagram, error) {
	var j jsonDiagram
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}

	d := New(j.Name)
	if j.Nodes != nil {
		d.Nodes = j.Nodes
	}
	if j.Edges != nil {
		d.Edges = j.Edges
	}
	if j.View != nil {
		d.View = View{Scale: j.View.Scale, OffsetX: j.View.OffsetX, OffsetY: j.View.OffsetY}
		if d.View.Scale == 0 {
			d.View.Scale = 1
		}
	}

	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("invalid diagram: %w", err)
	}
	return d, nil
}

// ToJSON converts a diagram to JSON.
func ToJSON(d *Diagram, pretty bool) ([]byte, error) {
	j := jsonDiagram{
		Name:  d.Name,
		Nodes: d.Nodes,
		Edges: d.Edges,
	}
	if d.View != (View{}) {
		j.View = &jsonView{Scale: d.View.Scale, OffsetX: d.View.OffsetX, OffsetY: d.View.OffsetY}
	}

	if pretty {
		return json.MarshalIndent(j, "", "  ")
	}
	return json.Marshal(j)
}
