// Command flowedit is a terminal viewer that animates packets along the
// edges of an architecture diagram.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
	"github.com/ha1tch/archflow/pkg/render"
)

// Editor holds all viewer state
type Editor struct {
	screen   tcell.Screen
	diagram  *diagram.Diagram
	filename string
	config   Config

	sched *flow.Scheduler
	term  *render.Terminal

	// Viewport, in surface pixels
	scale   float64
	offsetX float64
	offsetY float64

	selectedEdge int // -1 = none
	showHelp     bool

	message           string
	messageType       MessageType
	messageFlashStart int64 // Unix milliseconds when message was shown

	animating atomic.Bool // read by the ticker goroutine
}

// MessageType for status messages
type MessageType int

const (
	MsgInfo    MessageType = iota // Informative, no flash
	MsgError                      // Errors, flash
	MsgSuccess                    // State changes, flash
	MsgWarning                    // Warnings, flash
)

// Zoom limits
const (
	minScale = 0.25
	maxScale = 4
)

func main() {
	var filename, logFile string
	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-log", "--log":
			if i+1 < len(args) {
				logFile = args[i+1]
				i++
			}
		case "-h", "--help", "help":
			fmt.Println("Usage: flowedit [-log file] <diagram.json>")
			return
		default:
			filename = args[i]
		}
	}
	if filename == "" {
		fmt.Fprintln(os.Stderr, "Usage: flowedit [-log file] <diagram.json>")
		os.Exit(1)
	}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		flow.SetLogger(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	ed := NewEditor(LoadConfig())
	if err := ed.loadFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", filename, err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	screen.Clear()
	ed.Mount(screen)

	ed.run()

	ed.Unmount()
	screen.Fini()

	ed.config.LastDir = filepath.Dir(ed.filename)
	if err := SaveConfig(ed.config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
	}
}

// NewEditor creates a viewer with no screen mounted.
func NewEditor(cfg Config) *Editor {
	ed := &Editor{
		config:       cfg,
		scale:        1,
		selectedEdge: -1,
	}
	ed.term = render.NewTerminal(nil, render.WithCellSize(cfg.CellWidth, cfg.CellHeight))
	ev, _ := flow.ParseEvaluator(cfg.Evaluator)
	ed.sched = flow.New(ed.term,
		flow.WithSurface(ed),
		flow.WithEvaluator(ev),
		flow.WithFadeOut(cfg.Fade()),
	)
	return ed
}

// Mount attaches the viewer and its packet renderer to a screen.
func (ed *Editor) Mount(screen tcell.Screen) {
	ed.screen = screen
	ed.term.Mount(screen)
}

// Unmount stops every animation and detaches the screen.
func (ed *Editor) Unmount() {
	ed.animating.Store(false)
	ed.sched.Close()
	ed.term.Unmount()
	ed.screen = nil
}

// Transform reports the current viewport to the scheduler.
func (ed *Editor) Transform() (flow.Transform, bool) {
	return flow.Transform{Scale: ed.scale, TranslateX: ed.offsetX, TranslateY: ed.offsetY}, ed.screen != nil
}

// loadFile reads a diagram and, if present, its .view sidecar.
func (ed *Editor) loadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	d, err := diagram.ParseJSON(data)
	if err != nil {
		return err
	}

	view := d.View
	if text, err := os.ReadFile(viewPath(filename)); err == nil {
		v, err := diagram.ParseView(string(text))
		if err != nil {
			return fmt.Errorf("%s: %w", viewPath(filename), err)
		}
		view = v
	}

	ed.diagram = d
	ed.filename = filename
	ed.scale = view.Scale
	if ed.scale <= 0 {
		ed.scale = 1
	}
	ed.offsetX, ed.offsetY = view.OffsetX, view.OffsetY
	if ed.selectedEdge >= len(d.Edges) {
		ed.selectedEdge = -1
	}
	if ed.selectedEdge < 0 && len(d.Edges) > 0 {
		ed.selectedEdge = 0
	}
	return nil
}

func viewPath(filename string) string {
	return filename + ".view"
}

// reload rereads the diagram and drops animations whose nodes vanished.
func (ed *Editor) reload() {
	if err := ed.loadFile(ed.filename); err != nil {
		ed.showMessage(fmt.Sprintf("Reload failed: %v", err), MsgError)
		return
	}
	before := len(ed.sched.ActiveEdgeIDs())
	ed.sched.Reconcile(ed.diagram.Nodes)
	if dropped := before - len(ed.sched.ActiveEdgeIDs()); dropped > 0 {
		ed.showMessage(fmt.Sprintf("Reloaded, stopped %d orphaned animation(s)", dropped), MsgWarning)
		return
	}
	ed.showMessage("Reloaded", MsgSuccess)
}

// saveView writes the current viewport next to the diagram.
func (ed *Editor) saveView() {
	v := diagram.View{Scale: ed.scale, OffsetX: ed.offsetX, OffsetY: ed.offsetY}
	if err := os.WriteFile(viewPath(ed.filename), []byte(diagram.GenerateView(v)), 0644); err != nil {
		ed.showMessage(fmt.Sprintf("Save view failed: %v", err), MsgError)
		return
	}
	ed.showMessage("View saved", MsgSuccess)
}

func (ed *Editor) run() {
	interval := ed.config.FrameInterval()
	screen := ed.screen
	done := make(chan struct{})
	var wg sync.WaitGroup

	// The ticker must be gone before the caller unmounts the screen.
	defer func() {
		close(done)
		wg.Wait()
	}()

	// Periodic refresh while packets are moving or a message is flashing
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			select {
			case <-done:
				return
			default:
			}
			if ed.animating.Load() {
				screen.PostEvent(tcell.NewEventInterrupt(nil))
			}
		}
	}()

	for {
		ed.tick()
		ed.draw()
		screen.Show()

		ev := screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			if ed.handleKey(ev) {
				return
			}
		case *tcell.EventInterrupt:
			// Frame tick, redraw
		}
	}
}

// tick advances animations and tells the ticker goroutine whether more
// frames are needed.
func (ed *Editor) tick() {
	ed.sched.Tick()
	busy := len(ed.sched.ActiveEdgeIDs()) > 0
	if ed.message != "" && ed.messageFlashStart > 0 {
		elapsed := time.Now().UnixMilli() - ed.messageFlashStart
		if elapsed >= 0 && elapsed < 700 {
			busy = true
		}
	}
	ed.animating.Store(busy)
}

func (ed *Editor) showMessage(msg string, typ MessageType) {
	ed.message = msg
	ed.messageType = typ
	ed.messageFlashStart = 0
	if typ != MsgInfo {
		ed.messageFlashStart = time.Now().UnixMilli()
	}
}

// handleKey processes a key press and reports whether to quit.
func (ed *Editor) handleKey(ev *tcell.EventKey) bool {
	if ed.showHelp {
		ed.showHelp = false
		return false
	}

	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyTab:
		ed.cycleEdge(1)
	case tcell.KeyBacktab:
		ed.cycleEdge(-1)
	case tcell.KeyEnter:
		ed.toggleSelected()
	case tcell.KeyLeft:
		ed.pan(1, 0)
	case tcell.KeyRight:
		ed.pan(-1, 0)
	case tcell.KeyUp:
		ed.pan(0, 1)
	case tcell.KeyDown:
		ed.pan(0, -1)
	case tcell.KeyRune:
		return ed.handleRune(ev.Rune())
	}
	return false
}

func (ed *Editor) handleRune(r rune) bool {
	switch r {
	case 'q':
		return true
	case ' ':
		ed.toggleSelected()
	case 'a':
		ed.startAll()
	case 's':
		if id := ed.selectedID(); id != "" {
			ed.sched.Stop(id)
			ed.showMessage("Stopped "+id, MsgInfo)
		}
	case 'S':
		ed.sched.StopAll()
		ed.showMessage("Stopped all animations", MsgInfo)
	case 'p':
		ed.togglePause()
	case 'g':
		ed.restartAll()
	case 'r':
		ed.reload()
	case 'v':
		ed.saveView()
	case 'w':
		if err := SaveConfig(ed.config); err != nil {
			ed.showMessage(fmt.Sprintf("Save config failed: %v", err), MsgError)
		} else {
			ed.showMessage("Config saved to "+ConfigPath(), MsgSuccess)
		}
	case '+', '=':
		ed.zoom(1.25)
	case '-':
		ed.zoom(0.8)
	case '0':
		ed.scale, ed.offsetX, ed.offsetY = 1, 0, 0
	case 'b':
		ed.config.Bidirectional = !ed.config.Bidirectional
		ed.showMessage(fmt.Sprintf("Bidirectional: %v", ed.config.Bidirectional), MsgInfo)
	case 't':
		ed.config.Trail = !ed.config.Trail
		ed.showMessage(fmt.Sprintf("Trail: %v", ed.config.Trail), MsgInfo)
	case 'c':
		ed.cycleShape()
	case '[':
		ed.config.Speed = clamp(ed.config.Speed-0.5, 0.5, 10)
	case ']':
		ed.config.Speed = clamp(ed.config.Speed+0.5, 0.5, 10)
	case '{':
		ed.config.Frequency = clamp(ed.config.Frequency-0.5, 0.5, 10)
	case '}':
		ed.config.Frequency = clamp(ed.config.Frequency+0.5, 0.5, 10)
	case '?':
		ed.showHelp = true
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (ed *Editor) selectedID() string {
	if ed.diagram == nil || ed.selectedEdge < 0 || ed.selectedEdge >= len(ed.diagram.Edges) {
		return ""
	}
	return ed.diagram.Edges[ed.selectedEdge].ID
}

func (ed *Editor) cycleEdge(dir int) {
	n := len(ed.diagram.Edges)
	if n == 0 {
		return
	}
	ed.selectedEdge = ((ed.selectedEdge+dir)%n + n) % n
}

func (ed *Editor) cycleShape() {
	for i, sh := range flow.Shapes {
		if sh == ed.config.Shape {
			ed.config.Shape = flow.Shapes[(i+1)%len(flow.Shapes)]
			break
		}
	}
	ed.showMessage("Shape: "+string(ed.config.Shape), MsgInfo)
}

// startEdge starts an edge with the configured style.
func (ed *Editor) startEdge(e diagram.Edge) error {
	st := ed.config.Style()
	if e.Label != "" {
		st.Label = e.Label
	}
	return ed.sched.Start(e.ID, e, ed.diagram.Nodes, st)
}

func (ed *Editor) toggleSelected() {
	id := ed.selectedID()
	if id == "" {
		return
	}
	if ed.sched.IsRunning(id) {
		ed.sched.Stop(id)
		ed.showMessage("Stopped "+id, MsgInfo)
		return
	}
	if err := ed.startEdge(ed.diagram.Edges[ed.selectedEdge]); err != nil {
		ed.showMessage(err.Error(), MsgError)
		return
	}
	ed.showMessage("Started "+id, MsgSuccess)
}

func (ed *Editor) startAll() {
	failed := 0
	for _, e := range ed.diagram.Edges {
		if err := ed.startEdge(e); err != nil {
			failed++
		}
	}
	if failed > 0 {
		ed.showMessage(fmt.Sprintf("%d edge(s) could not be started", failed), MsgWarning)
		return
	}
	ed.showMessage(fmt.Sprintf("Started %d edges", len(ed.diagram.Edges)), MsgSuccess)
}

// restartAll restarts running edges so they pick up the current viewport
// and style.
func (ed *Editor) restartAll() {
	for _, id := range ed.sched.ActiveEdgeIDs() {
		e, ok := ed.diagram.EdgeByID(id)
		if !ok {
			ed.sched.Stop(id)
			continue
		}
		if err := ed.startEdge(e); err != nil {
			ed.showMessage(err.Error(), MsgError)
			return
		}
	}
}

func (ed *Editor) togglePause() {
	id := ed.selectedID()
	if id == "" || !ed.sched.IsRunning(id) {
		return
	}
	if ed.sched.IsPaused(id) {
		ed.sched.Resume(id)
		ed.showMessage("Resumed "+id, MsgInfo)
	} else {
		ed.sched.Pause(id)
		ed.showMessage("Paused "+id, MsgInfo)
	}
}

// pan moves the view by four cells per step.
func (ed *Editor) pan(dx, dy int) {
	ed.offsetX += float64(dx) * 4 * ed.config.CellWidth
	ed.offsetY += float64(dy) * 4 * ed.config.CellHeight
}

func (ed *Editor) zoom(factor float64) {
	ed.scale = clamp(ed.scale*factor, minScale, maxScale)
}
