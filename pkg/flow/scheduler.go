// Package flow animates packets travelling along diagram edges.
//
// A Scheduler owns at most one running animation per edge id. Each running
// animation has a spawn clock that emits packets at the style's frequency;
// every packet then moves from the start of the edge curve to its end over
// the style's speed and is destroyed on arrival. Both clocks are advanced by
// a single cooperative Tick, normally called once per frame from the
// editor's event loop.
//
// A Scheduler is not safe for concurrent use. Stop, StopAll and Start may be
// called from inside renderer or hook callbacks made during Tick.
package flow

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ha1tch/archflow/pkg/diagram"
)

// DefaultReturnOpacity is the relative opacity of return packets on a
// bidirectional edge.
const DefaultReturnOpacity = 0.6

// Packet is a marker travelling along one edge.
type Packet struct {
	ID       uint64
	EdgeID   string
	Style    PacketStyle
	BornAt   time.Duration
	Progress float64
	Return   bool // travelling target to source

	handle    Handle
	path      Path
	fading    bool
	fadeStart time.Duration
	dead      bool
}

// Handle returns the renderer handle of the packet's marker.
func (p *Packet) Handle() Handle { return p.handle }

// animation is the running state of one edge.
type animation struct {
	edgeID      string
	runID       string // distinguishes restarts of the same edge in logs
	edge        diagram.Edge
	style       PacketStyle
	returnStyle PacketStyle
	transform   Transform
	forward     Path
	backward    Path // nil unless bidirectional

	interval    time.Duration
	duration    time.Duration
	returnDelay time.Duration

	startedAt   time.Duration
	nextSpawn   time.Duration
	returns     []time.Duration // pending return spawns, ascending
	timerActive bool

	paused   bool
	pausedAt time.Duration

	packets []*Packet
	spawned int
}

// Stats summarises scheduler activity.
type Stats struct {
	Active         int // running animations
	Live           int // packets on screen
	PendingReturns int // return spawns not yet due
	Spawned        int // packets created since New
	Retired        int // packets that reached their end
	Skipped        int // spawns dropped because they were already over when due
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source. Defaults to the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithSurface sets where the viewport transform is read from at Start.
func WithSurface(surface Surface) Option {
	return func(s *Scheduler) { s.surface = surface }
}

// WithEvaluator picks the curve evaluation strategy. Defaults to ClosedForm.
func WithEvaluator(e Evaluator) Option {
	return func(s *Scheduler) { s.eval = e }
}

// WithFadeOut makes arriving packets fade over d before being destroyed.
func WithFadeOut(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.fade = d
		}
	}
}

// WithReturnOpacity sets the relative opacity of return packets.
func WithReturnOpacity(alpha float64) Option {
	return func(s *Scheduler) {
		if alpha > 0 && alpha <= 1 {
			s.returnOpacity = alpha
		}
	}
}

// WithLogger sets the logger. Defaults to the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSpawnHook registers a function called after each packet is created.
func WithSpawnHook(fn func(Packet)) Option {
	return func(s *Scheduler) { s.spawnHook = fn }
}

// Scheduler runs packet animations for a diagram view. Create one when the
// view is mounted and Close it when the view goes away.
type Scheduler struct {
	renderer      Renderer
	heading       Heading
	surface       Surface
	clock         Clock
	eval          Evaluator
	fade          time.Duration
	returnOpacity float64
	logger        *slog.Logger
	spawnHook     func(Packet)

	reg    *registry
	nextID uint64
	stats  Stats
}

// New creates a scheduler drawing through r.
func New(r Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		renderer:      r,
		eval:          ClosedForm{},
		returnOpacity: DefaultReturnOpacity,
		logger:        Logger(),
		reg:           newRegistry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewWallClock()
	}
	s.heading, _ = r.(Heading)
	return s
}

// Start animates packets on an edge, replacing any animation already
// running under edgeID. On error nothing changes: the previous animation,
// if any, keeps running.
func (s *Scheduler) Start(edgeID string, edge diagram.Edge, nodes []diagram.Node, style PacketStyle) error {
	if err := style.Validate(); err != nil {
		s.logger.Warn("start rejected", "edge", edgeID, "error", err)
		return err
	}
	if s.renderer == nil || !s.renderer.Available() {
		s.logger.Debug("start ignored, no render target", "edge", edgeID)
		return &RenderTargetUnavailableError{EdgeID: edgeID}
	}

	source, target, err := resolveEdge(edgeID, edge, nodes)
	if err != nil {
		s.logger.Warn("start rejected", "edge", edgeID, "error", err)
		return err
	}

	// The old run is fully torn down before the new one exists.
	s.Stop(edgeID)

	tr := ResolveTransform(s.surface)
	curve := ComputeCurve(source, target).Map(tr)
	now := s.clock.Now()

	a := &animation{
		edgeID:      edgeID,
		runID:       uuid.NewString(),
		edge:        edge,
		style:       style,
		returnStyle: style.ReturnVariant(s.returnOpacity),
		transform:   tr,
		forward:     s.eval.Prepare(curve),
		interval:    style.Interval(),
		duration:    style.Duration(),
		returnDelay: style.ReturnDelay(),
		startedAt:   now,
		timerActive: true,
	}
	a.nextSpawn = now + a.interval
	if style.Bidirectional {
		a.backward = s.eval.Prepare(curve.Reverse())
	}

	s.reg.put(a)
	s.logger.Info("animation started",
		"edge", edgeID,
		"run", a.runID,
		"frequency", style.Frequency,
		"speed", style.Speed,
		"bidirectional", style.Bidirectional)
	return nil
}

// resolveEdge finds both endpoint nodes of an edge.
func resolveEdge(edgeID string, edge diagram.Edge, nodes []diagram.Node) (source, target diagram.Node, err error) {
	var haveSource, haveTarget bool
	for _, n := range nodes {
		if !haveSource && n.ID == edge.Source {
			source, haveSource = n, true
		}
		if !haveTarget && n.ID == edge.Target {
			target, haveTarget = n, true
		}
	}
	if !haveSource {
		return source, target, &EdgeResolutionError{EdgeID: edgeID, NodeID: edge.Source, End: "source"}
	}
	if !haveTarget {
		return source, target, &EdgeResolutionError{EdgeID: edgeID, NodeID: edge.Target, End: "target"}
	}
	return source, target, nil
}

// Stop cancels the animation on an edge and destroys its packets.
// Stopping an idle edge does nothing.
func (s *Scheduler) Stop(edgeID string) {
	a := s.reg.get(edgeID)
	if a == nil {
		return
	}

	// Timers first, so nothing can spawn while packets are being destroyed.
	a.timerActive = false
	a.returns = nil

	live := a.packets
	a.packets = nil
	for _, p := range live {
		if p.dead {
			continue
		}
		p.dead = true
		s.renderer.Destroy(p.handle)
	}

	// A destroy callback may already have replaced this animation.
	if s.reg.get(edgeID) == a {
		s.reg.remove(edgeID)
	}
	s.logger.Info("animation stopped", "edge", edgeID, "run", a.runID, "spawned", a.spawned)
}

// StopAll stops every running animation.
func (s *Scheduler) StopAll() {
	for _, id := range s.reg.ids() {
		s.Stop(id)
	}
}

// Close releases everything the scheduler holds. Call it when the view is
// unmounted.
func (s *Scheduler) Close() {
	s.StopAll()
}

// Pause freezes an animation: no spawns, and live packets hold position.
func (s *Scheduler) Pause(edgeID string) bool {
	a := s.reg.get(edgeID)
	if a == nil || a.paused {
		return false
	}
	a.paused = true
	a.pausedAt = s.clock.Now()
	return true
}

// Resume continues a paused animation from where it stopped.
func (s *Scheduler) Resume(edgeID string) bool {
	a := s.reg.get(edgeID)
	if a == nil || !a.paused {
		return false
	}
	shift := s.clock.Now() - a.pausedAt
	a.paused = false
	a.nextSpawn += shift
	for i := range a.returns {
		a.returns[i] += shift
	}
	for _, p := range a.packets {
		p.BornAt += shift
		if p.fading {
			p.fadeStart += shift
		}
	}
	return true
}

// Reconcile checks running animations against a new node set and stops
// those whose endpoints no longer exist. Moved nodes are not re-resolved;
// an animation keeps the geometry it was started with.
func (s *Scheduler) Reconcile(nodes []diagram.Node) {
	ids := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		ids[n.ID] = true
	}
	for _, id := range s.reg.ids() {
		a := s.reg.get(id)
		if a == nil {
			continue
		}
		if !ids[a.edge.Source] || !ids[a.edge.Target] {
			s.logger.Warn("endpoint removed, stopping animation",
				"edge", id, "source", a.edge.Source, "target", a.edge.Target)
			s.Stop(id)
		}
	}
}

// Tick advances every running animation to the current clock time.
func (s *Scheduler) Tick() {
	now := s.clock.Now()
	for _, id := range s.reg.ids() {
		a := s.reg.get(id)
		if a == nil {
			continue
		}
		s.advance(a, now)
	}
}

// alive reports whether a is still the registered animation for its edge.
func (s *Scheduler) alive(a *animation) bool {
	return s.reg.get(a.edgeID) == a
}

func (s *Scheduler) advance(a *animation, now time.Duration) {
	if a.paused {
		return
	}

	for a.timerActive && a.nextSpawn <= now {
		born := a.nextSpawn
		a.nextSpawn += a.interval
		if a.backward != nil {
			a.returns = append(a.returns, born+a.returnDelay)
		}
		if !s.spawn(a, born, now, false) {
			return
		}
	}

	for a.timerActive && len(a.returns) > 0 && a.returns[0] <= now {
		born := a.returns[0]
		a.returns = a.returns[1:]
		if !s.spawn(a, born, now, true) {
			return
		}
	}

	retired := 0
	for _, p := range a.packets {
		if p.dead {
			continue
		}
		if s.step(a, p, now) {
			retired++
		}
		if !s.alive(a) {
			return
		}
	}

	if retired > 0 {
		keep := a.packets[:0]
		for _, p := range a.packets {
			if !p.dead {
				keep = append(keep, p)
			}
		}
		for i := len(keep); i < len(a.packets); i++ {
			a.packets[i] = nil
		}
		a.packets = keep
	}
}

// spawn creates one packet born at the given time. It returns false when
// the animation is no longer registered afterwards.
func (s *Scheduler) spawn(a *animation, born, now time.Duration, isReturn bool) bool {
	if now-born >= a.duration+s.fade {
		// Already over; happens only after the loop stalled.
		s.stats.Skipped++
		return true
	}

	style, path := a.style, a.forward
	if isReturn {
		style, path = a.returnStyle, a.backward
	}

	h, err := s.renderer.Create(style)
	if err != nil {
		s.logger.Warn("packet create failed, stopping animation", "edge", a.edgeID, "run", a.runID, "error", err)
		s.Stop(a.edgeID)
		return false
	}

	s.nextID++
	p := &Packet{
		ID:     s.nextID,
		EdgeID: a.edgeID,
		Style:  style,
		BornAt: born,
		Return: isReturn,
		handle: h,
		path:   path,
	}
	a.packets = append(a.packets, p)
	if !isReturn {
		a.spawned++
	}
	s.stats.Spawned++
	s.logger.Debug("packet spawned", "edge", a.edgeID, "id", p.ID, "return", isReturn)

	if s.spawnHook != nil {
		s.spawnHook(*p)
	}
	return s.alive(a)
}

// step moves one packet and reports whether it was destroyed.
func (s *Scheduler) step(a *animation, p *Packet, now time.Duration) bool {
	if p.fading {
		faded := now - p.fadeStart
		if faded >= s.fade {
			s.retire(a, p)
			return true
		}
		s.renderer.SetOpacity(p.handle, 1-float64(faded)/float64(s.fade))
		return false
	}

	t := Progress(now-p.BornAt, a.duration)
	if t < p.Progress {
		t = p.Progress
	}
	p.Progress = t

	if s.heading != nil {
		d := p.path.Curve().Tangent(t)
		s.heading.SetHeading(p.handle, d.X, d.Y)
	}
	PlaceAtCurveFraction(s.renderer, p.handle, p.path, t)

	if t < 1 {
		return false
	}
	if s.fade > 0 {
		p.fading = true
		p.fadeStart = p.BornAt + a.duration
		return false
	}
	s.retire(a, p)
	return true
}

func (s *Scheduler) retire(a *animation, p *Packet) {
	p.dead = true
	s.stats.Retired++
	s.logger.Debug("packet retired", "edge", a.edgeID, "id", p.ID)
	s.renderer.Destroy(p.handle)
}

// Progress converts elapsed travel time into a curve fraction clamped to
// [0,1].
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 || elapsed >= duration {
		return 1
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(elapsed) / float64(duration)
}

// ActiveEdgeIDs returns the ids of running animations in the order they
// were started.
func (s *Scheduler) ActiveEdgeIDs() []string {
	return s.reg.ids()
}

// IsRunning reports whether an edge has a running (possibly paused)
// animation.
func (s *Scheduler) IsRunning(edgeID string) bool {
	return s.reg.get(edgeID) != nil
}

// IsPaused reports whether an edge's animation is paused.
func (s *Scheduler) IsPaused(edgeID string) bool {
	a := s.reg.get(edgeID)
	return a != nil && a.paused
}

// RunID identifies the current run on an edge. Every Start gets a new one.
func (s *Scheduler) RunID(edgeID string) (string, bool) {
	a := s.reg.get(edgeID)
	if a == nil {
		return "", false
	}
	return a.runID, true
}

// Style returns the style an edge is animating with.
func (s *Scheduler) Style(edgeID string) (PacketStyle, bool) {
	a := s.reg.get(edgeID)
	if a == nil {
		return PacketStyle{}, false
	}
	return a.style, true
}

// Curve returns the surface-space curve an edge's packets follow.
func (s *Scheduler) Curve(edgeID string) (Curve, bool) {
	a := s.reg.get(edgeID)
	if a == nil {
		return Curve{}, false
	}
	return a.forward.Curve(), true
}

// Packets returns a copy of an edge's live packets in spawn order.
func (s *Scheduler) Packets(edgeID string) []Packet {
	a := s.reg.get(edgeID)
	if a == nil {
		return nil
	}
	out := make([]Packet, 0, len(a.packets))
	for _, p := range a.packets {
		if !p.dead {
			out = append(out, *p)
		}
	}
	return out
}

// LiveCount is the number of packets on an edge.
func (s *Scheduler) LiveCount(edgeID string) int {
	a := s.reg.get(edgeID)
	if a == nil {
		return 0
	}
	n := 0
	for _, p := range a.packets {
		if !p.dead {
			n++
		}
	}
	return n
}

// ActiveTimers is the number of spawn clocks currently running.
func (s *Scheduler) ActiveTimers() int {
	n := 0
	for _, id := range s.reg.order {
		if s.reg.byID[id].timerActive {
			n++
		}
	}
	return n
}

// Stats returns activity counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats
	st.Active = s.reg.len()
	st.Live = 0
	st.PendingReturns = 0
	for _, id := range s.reg.order {
		a := s.reg.byID[id]
		st.PendingReturns += len(a.returns)
		for _, p := range a.packets {
			if !p.dead {
				st.Live++
			}
		}
	}
	return st
}
