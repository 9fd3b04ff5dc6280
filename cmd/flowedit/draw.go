package main

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/ha1tch/archflow/pkg/diagram"
	"github.com/ha1tch/archflow/pkg/flow"
)

// Styles
var (
	styleDefault    = tcell.StyleDefault
	styleNode       = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleNodeLabel  = tcell.StyleDefault.Foreground(tcell.ColorWhite).Bold(true)
	styleEdge       = tcell.StyleDefault.Foreground(tcell.ColorTeal)
	styleEdgeSel    = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	styleEdgeLive   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(200, 162, 200)) // Lilac
	styleStatus     = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorNavy)
	styleMsgInfo    = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleMsgError   = tcell.StyleDefault.Foreground(tcell.ColorRed).Background(tcell.ColorNavy).Bold(true)
	styleMsgSuccess = tcell.StyleDefault.Foreground(tcell.ColorSilver).Background(tcell.ColorNavy)
	styleHelp       = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleBorder     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTitle      = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
)

// edgeSamples is how many points an edge curve is drawn with.
const edgeSamples = 64

func (ed *Editor) draw() {
	ed.screen.Clear()
	w, h := ed.screen.Size()
	canvasH := h - 2

	if ed.diagram != nil {
		tr, _ := ed.Transform()
		for i, e := range ed.diagram.Edges {
			ed.drawEdge(i, e, tr, w, canvasH)
		}
		for _, n := range ed.diagram.Nodes {
			ed.drawNode(n, tr, w, canvasH)
		}
	}
	ed.term.Draw()

	if ed.showHelp {
		ed.drawHelp(w, h)
	}
	ed.drawStatusBar(w, h)
}

// cellOf maps a surface point to a cell.
func (ed *Editor) cellOf(p flow.Point) (int, int) {
	return int(math.Floor(p.X / ed.config.CellWidth)), int(math.Floor(p.Y / ed.config.CellHeight))
}

func (ed *Editor) drawEdge(i int, e diagram.Edge, tr flow.Transform, w, h int) {
	source, ok := ed.diagram.NodeByID(e.Source)
	if !ok {
		return
	}
	target, ok := ed.diagram.NodeByID(e.Target)
	if !ok {
		return
	}
	c := flow.ComputeCurve(source, target).Map(tr)

	style := styleEdge
	switch {
	case i == ed.selectedEdge:
		style = styleEdgeSel
	case ed.sched.IsRunning(e.ID):
		style = styleEdgeLive
	}

	lastX, lastY := math.MinInt, math.MinInt
	for s := 0; s <= edgeSamples; s++ {
		x, y := ed.cellOf(c.At(float64(s) / edgeSamples))
		if x == lastX && y == lastY {
			continue
		}
		lastX, lastY = x, y
		ed.setCell(x, y, w, h, '·', style)
	}
	ex, ey := ed.cellOf(c.End)
	ed.setCell(ex-1, ey, w, h, '▸', style)
}

func (ed *Editor) drawNode(n diagram.Node, tr flow.Transform, w, h int) {
	x0, y0 := ed.cellOf(tr.ToSurface(flow.Point{X: n.X, Y: n.Y}))
	x1, y1 := ed.cellOf(tr.ToSurface(flow.Point{X: n.X + n.Width, Y: n.Y + n.Height}))
	if x1-x0 < 2 {
		x1 = x0 + 2
	}
	if y1-y0 < 2 {
		y1 = y0 + 2
	}

	ed.setCell(x0, y0, w, h, '┌', styleNode)
	ed.setCell(x1, y0, w, h, '┐', styleNode)
	ed.setCell(x0, y1, w, h, '└', styleNode)
	ed.setCell(x1, y1, w, h, '┘', styleNode)
	for x := x0 + 1; x < x1; x++ {
		ed.setCell(x, y0, w, h, '─', styleNode)
		ed.setCell(x, y1, w, h, '─', styleNode)
	}
	for y := y0 + 1; y < y1; y++ {
		ed.setCell(x0, y, w, h, '│', styleNode)
		ed.setCell(x1, y, w, h, '│', styleNode)
		for x := x0 + 1; x < x1; x++ {
			ed.setCell(x, y, w, h, ' ', styleDefault)
		}
	}

	label := n.Label
	if label == "" {
		label = n.ID
	}
	inner := x1 - x0 - 1
	label = runewidth.Truncate(label, inner, "…")
	lx := x0 + 1 + (inner-runewidth.StringWidth(label))/2
	ed.drawStringClipped(lx, (y0+y1)/2, label, styleNodeLabel, w, h)
}

func (ed *Editor) setCell(x, y, w, h int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	ed.screen.SetContent(x, y, r, nil, style)
}

func (ed *Editor) drawStatusBar(w, h int) {
	y := h - 1

	// Background
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleStatus)
	}

	fileInfo := "[none]"
	if ed.filename != "" {
		fileInfo = filepath.Base(ed.filename)
	}
	ed.drawString(1, y, fileInfo, styleStatus)

	st := ed.sched.Stats()
	mid := fmt.Sprintf("%s  %d active  %d live  %d spawned", ed.edgeStatus(), st.Active, st.Live, st.Spawned)
	ed.drawString(w/2-runewidth.StringWidth(mid)/2, y, mid, styleStatus)

	if ed.message != "" {
		style := styleMsgInfo
		switch ed.messageType {
		case MsgError, MsgWarning:
			style = styleMsgError
		case MsgSuccess:
			style = styleMsgSuccess
		}
		if flashInverted(ed.messageType, time.Now().UnixMilli()-ed.messageFlashStart) {
			style = style.Reverse(true)
		}
		ed.drawString(w-runewidth.StringWidth(ed.message)-2, y, ed.message, style)
	}

	// Help bar
	y = h - 2
	for x := 0; x < w; x++ {
		ed.screen.SetContent(x, y, ' ', nil, styleDefault)
	}
	ed.drawString(1, y, ed.helpString(), styleHelp)
}

// flashInverted reports whether a message shown elapsed milliseconds ago
// is in an inverted phase: two 125ms pulses within the first 500ms.
func flashInverted(typ MessageType, elapsed int64) bool {
	if typ == MsgInfo || elapsed < 0 || elapsed >= 500 {
		return false
	}
	phase := elapsed / 125
	return phase == 1 || phase == 3
}

func (ed *Editor) edgeStatus() string {
	id := ed.selectedID()
	if id == "" {
		return "no edge"
	}
	e := ed.diagram.Edges[ed.selectedEdge]
	state := "idle"
	switch {
	case ed.sched.IsPaused(id):
		state = "paused"
	case ed.sched.IsRunning(id):
		state = fmt.Sprintf("running %d", ed.sched.LiveCount(id))
	}
	return fmt.Sprintf("%s (%s→%s) %s", id, e.Source, e.Target, state)
}

func (ed *Editor) helpString() string {
	dir := ""
	if ed.config.Bidirectional {
		dir = " ⇄"
	}
	return fmt.Sprintf("Tab:Edge  Enter:Start/Stop  a:All  S:Stop all  p:Pause  ?:Help  q:Quit   [%s %gs %g/s%s]",
		ed.config.Shape, ed.config.Speed, ed.config.Frequency, dir)
}

var helpLines = []string{
	"Tab / Shift+Tab   select edge",
	"Enter / Space     start or stop selected edge",
	"a                 start every edge",
	"s / S             stop selected / stop all",
	"p                 pause or resume selected edge",
	"g                 restart running edges with current view and style",
	"Arrows            pan",
	"+ / - / 0         zoom in / out / reset",
	"c                 cycle packet shape",
	"b / t             toggle bidirectional / trail",
	"[ ]               packet speed",
	"{ }               packet frequency",
	"r                 reload diagram",
	"v / w             save view / save config",
	"q / Esc           quit",
}

func (ed *Editor) drawHelp(w, h int) {
	boxW := 0
	for _, l := range helpLines {
		if n := runewidth.StringWidth(l); n > boxW {
			boxW = n
		}
	}
	boxW += 4
	boxH := len(helpLines) + 4
	x := (w - boxW) / 2
	y := (h - boxH) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	ed.drawBox(x, y, boxW, boxH, styleDefault)
	ed.drawString(x+2, y, " Help ", styleTitle)
	for i, l := range helpLines {
		ed.drawString(x+2, y+2+i, l, styleDefault)
	}
}

func (ed *Editor) drawBox(x, y, w, h int, style tcell.Style) {
	// Corners
	ed.screen.SetContent(x, y, '┌', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y, '┐', nil, styleBorder)
	ed.screen.SetContent(x, y+h-1, '└', nil, styleBorder)
	ed.screen.SetContent(x+w-1, y+h-1, '┘', nil, styleBorder)

	// Horizontal borders
	for i := x + 1; i < x+w-1; i++ {
		ed.screen.SetContent(i, y, '─', nil, styleBorder)
		ed.screen.SetContent(i, y+h-1, '─', nil, styleBorder)
	}

	// Vertical borders
	for i := y + 1; i < y+h-1; i++ {
		ed.screen.SetContent(x, i, '│', nil, styleBorder)
		ed.screen.SetContent(x+w-1, i, '│', nil, styleBorder)
	}

	// Fill
	for row := y + 1; row < y+h-1; row++ {
		for col := x + 1; col < x+w-1; col++ {
			ed.screen.SetContent(col, row, ' ', nil, style)
		}
	}
}

func (ed *Editor) drawString(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		ed.screen.SetContent(x, y, r, nil, style)
		x += runewidth.RuneWidth(r)
	}
}

func (ed *Editor) drawStringClipped(x, y int, s string, style tcell.Style, w, h int) {
	for _, r := range s {
		ed.setCell(x, y, w, h, r, style)
		x += runewidth.RuneWidth(r)
	}
}
