// Package app is the root Bubble Tea model of the live world. Every
// component is owned by the model and mutated only inside Update, so the
// program loop is the single UI thread.
package app

import (
	"context"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/client"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/config"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/interact"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/physics"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/render"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/spawn"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/stream"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/theme"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/views/debug"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/views/detail"
	"github.com/isirmt/nextjs-go-admin-portfolio/internal/views/status"
	"github.com/muesli/reflow/truncate"
)

const (
	statusHeight = 3 // bordered status bar
	helpHeight   = 1
	canvasTop    = statusHeight
	resetSeq     = "\x1b[0m"
	fetchTimeout = 10 * time.Second
)

// API is the part of the feed server REST client the world uses.
type API interface {
	GetWorks(ctx context.Context) ([]client.Work, error)
	GetHealth(ctx context.Context) (*client.Health, error)
	SendClick(ctx context.Context, workID string) error
}

// Feed is the live click stream.
type Feed interface {
	Start(ctx context.Context)
	Events() <-chan stream.Event
	Suspend()
	Dispose()
}

// Options configures New. Zero values select the defaults.
type Options struct {
	World         config.WorldConfig
	Telemetry     config.TelemetryConfig
	Engine        physics.Factory
	Rand          *rand.Rand
	MarkdownStyle string
}

type (
	worksMsg struct {
		works []client.Work
		err   error
	}
	healthMsg struct {
		health *client.Health
		err    error
	}
	streamMsg       struct{ ev stream.Event }
	streamClosedMsg struct{}
	frameMsg        time.Time
	sampleMsg       struct{}
)

type pointer struct {
	col, row int
	in       bool
}

// Model is the root Bubble Tea model.
type Model struct {
	api    API
	feed   Feed
	ctx    context.Context
	cancel context.CancelFunc
	cfg    config.WorldConfig

	keys   KeyMap
	help   help.Model
	width  int
	height int

	camera    render.Camera
	world     *physics.World
	scheduler *spawn.Scheduler
	sampler   *spawn.Sampler
	palette   spawn.Palette
	works     map[string]client.Work

	bridge     *interact.Bridge
	selection  *interact.Selection
	telemetry  *interact.Telemetry
	hoveredBox string
	pointer    pointer
	lastFrame  time.Time

	// Sub-views.
	statusBar status.Model
	detail    detail.Model
	debugLog  debug.Model
	showDebug bool
}

// New creates the root model. feed may be nil, in which case only the idle
// sampler spawns boxes.
func New(api API, feed Feed, opts Options) Model {
	def := config.Default()
	cfg := opts.World
	if cfg.MaxBoxes <= 0 {
		cfg.MaxBoxes = def.World.MaxBoxes
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = def.World.FrameRate
	}
	if cfg.AutoSpawnInterval <= 0 {
		cfg.AutoSpawnInterval = def.World.AutoSpawnInterval
	}
	if cfg.Zoom < config.MinZoom {
		cfg.Zoom = def.World.Zoom
	}
	if opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "dark"
	}

	ctx, cancel := context.WithCancel(context.Background())
	world := physics.NewWorld(physics.Config{
		Gravity:     cfg.Gravity,
		Timestep:    cfg.Timestep,
		MaxSubsteps: cfg.MaxSubsteps,
		FloorOffset: cfg.FloorOffset,
		RampSize:    cfg.RampSize,
	}, opts.Engine)

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	sampler := spawn.NewSampler(cfg.AutoSpawnCount, rng)
	scheduler := spawn.NewScheduler(cfg.MaxBoxes, world.Add, func() {
		sampler.Stop()
		if feed != nil {
			feed.Suspend()
		}
	}, spawn.WithRand(rng))

	sel := &interact.Selection{}
	var sender interact.Sender
	if api != nil {
		sender = api
	}

	m := Model{
		api:       api,
		feed:      feed,
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		camera:    render.NewCamera(cfg.Zoom),
		world:     world,
		scheduler: scheduler,
		sampler:   sampler,
		works:     make(map[string]client.Work),
		bridge:    interact.NewBridge(),
		selection: sel,
		telemetry: interact.NewTelemetry(sel, interact.NewLimiter(opts.Telemetry.Interval), sender),
		statusBar: status.New(),
		detail:    detail.New(opts.MarkdownStyle),
		debugLog:  debug.New(),
	}
	m.statusBar.SetPopulation(0, cfg.MaxBoxes)
	if feed == nil {
		m.statusBar.State = theme.StateOffline
	}
	if !world.Available() {
		m.debugLog.Add(debug.KindError, "physics engine unavailable")
	}
	return m
}

// Init loads the works, opens the feed and starts the frame loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadWorks(), m.loadHealth(), m.frame(), m.statusBar.Tick()}
	if m.feed != nil {
		cmds = append(cmds, m.listen())
	}
	return tea.Batch(cmds...)
}

// Close tears down the feed and stops all spawning. It is safe to call
// more than once.
func (m Model) Close() {
	m.scheduler.Close()
	m.sampler.Stop()
	if m.feed != nil {
		m.feed.Dispose()
	}
	m.cancel()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case worksMsg:
		return m.handleWorks(msg)

	case healthMsg:
		if msg.err != nil {
			m.statusBar.Server = ""
			m.debugLog.Addf(debug.KindError, "health: %v", msg.err)
			return m, nil
		}
		m.statusBar.SetHealth(msg.health.Clients, msg.health.Seq)
		m.debugLog.Addf(debug.KindStream, "server %s, %d clients, seq %d",
			msg.health.Status, msg.health.Clients, msg.health.Seq)
		return m, nil

	case streamMsg:
		m.handleStream(msg.ev)
		return m, readEvent(m.feed)

	case streamClosedMsg:
		m.statusBar.State = theme.StateEnded
		m.debugLog.Add(debug.KindStream, "feed closed")
		return m, nil

	case sampleMsg:
		if id, ok := m.sampler.Tick(m.palette); ok {
			m.spawn(id, "auto")
		}
		if m.sampler.Active() {
			return m, m.sampleTick()
		}
		return m, nil

	case frameMsg:
		now := time.Time(msg)
		if !m.lastFrame.IsZero() {
			m.world.Advance(now.Sub(m.lastFrame))
		}
		m.lastFrame = now
		m.refreshHover()
		return m, m.frame()

	case detail.FrameMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.statusBar, cmd = m.statusBar.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.statusBar.Width = max(width-2, 0)
	m.help.Width = width
	m.camera.Resize(width, height-statusHeight-helpHeight)

	vp := m.camera.Viewport()
	m.scheduler.SetViewport(vp)
	m.world.Resize(vp, m.scheduler.Geometry().BoxSize)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Debug):
		m.showDebug = !m.showDebug
		m.pointer.in = false
		m.refreshHover()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.showDebug {
			m.showDebug = false
			return m, nil
		}
		m.selection.Clear()
		m.detail.Hide()
		return m, nil

	case key.Matches(msg, m.keys.Reload):
		m.debugLog.Add(debug.KindWorks, "reloading works")
		return m, tea.Batch(m.loadWorks(), m.loadHealth())

	case key.Matches(msg, m.keys.Up):
		if m.showDebug {
			m.debugLog.ScrollUp(1)
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.showDebug {
			m.debugLog.ScrollDown(1)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	col, row := msg.X, msg.Y-canvasTop
	m.pointer = pointer{col: col, row: row, in: m.inCanvas(col, row)}

	switch {
	case msg.Action == tea.MouseActionMotion:
		m.refreshHover()
		return m, nil
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.refreshHover()
		return m, m.click()
	}
	return m, nil
}

// inCanvas reports whether a cell shows the world, i.e. lies inside the
// camera and is not covered by an overlay.
func (m Model) inCanvas(col, row int) bool {
	if m.showDebug || col < 0 || row < 0 || row >= m.camera.Rows {
		return false
	}
	limit := m.camera.Cols
	if m.detail.Visible() {
		limit -= m.detail.Width()
	}
	return col < limit
}

// refreshHover re-runs the hit test at the last pointer position. Boxes
// move under a still pointer, so this runs every frame too.
func (m *Model) refreshHover() {
	var box physics.BoxState
	if m.pointer.in {
		box, _ = render.Pick(m.camera, m.world.Boxes(), m.pointer.col, m.pointer.row)
	}
	m.hoveredBox = box.ID
	if m.bridge.Hover(box.WorkID) {
		m.statusBar.Hovered = m.title(box.WorkID)
	}
	m.statusBar.Pointer = m.bridge.Cursor() == interact.CursorPointer
}

func (m *Model) click() tea.Cmd {
	workID := m.bridge.Highlighted()
	if workID == "" {
		return nil
	}
	c := m.bridge.Click(workID)
	if m.telemetry.Handle(c) {
		m.debugLog.Addf(debug.KindClick, "beacon %s (nonce %d)", workID, c.Nonce)
	}
	return m.syncDetail()
}

// syncDetail opens, switches or closes the flyout to match the selection.
func (m *Model) syncDetail() tea.Cmd {
	id, ok := m.selection.Selected()
	if !ok {
		m.detail.Hide()
		return nil
	}
	if m.detail.Visible() && m.detail.Work.ID == id {
		return nil
	}
	w, found := m.works[id]
	if !found {
		w = client.Work{ID: id}
	}
	return m.detail.Show(w)
}

func (m Model) handleWorks(msg worksMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		log.Printf("app: loading works: %v", msg.err)
		m.debugLog.Addf(debug.KindError, "works: %v", msg.err)
		return m, nil
	}

	m.works = make(map[string]client.Work, len(msg.works))
	for _, w := range msg.works {
		m.works[w.ID] = w
	}
	m.palette = spawn.NewPalette(msg.works)
	m.scheduler.SetPalette(m.palette)
	m.statusBar.Works = m.palette.Len()
	m.debugLog.Addf(debug.KindWorks, "loaded %d works", m.palette.Len())

	if m.sampler.Start(m.palette) {
		return m, m.sampleTick()
	}
	return m, nil
}

func (m *Model) handleStream(ev stream.Event) {
	ended := m.scheduler.Capped()
	switch ev.Kind {
	case stream.EventOpen:
		m.debugLog.Add(debug.KindStream, "connected")
		if !ended {
			m.statusBar.State = theme.StateLive
		}
	case stream.EventWorkClick:
		m.debugLog.Addf(debug.KindStream, "click %s seq %v", ev.WorkID, ev.Seq)
		m.spawn(ev.WorkID, "live")
	case stream.EventClose:
		m.debugLog.Addf(debug.KindStream, "closed (%v), retry in %v", ev.Err, ev.Delay)
		if !ended {
			m.statusBar.State = theme.StateOffline
		}
	}
}

func (m *Model) spawn(workID, source string) {
	box, ok := m.scheduler.Spawn(workID)
	if !ok {
		return
	}
	m.debugLog.Addf(debug.KindSpawn, "%s %s", source, box.ID)
	m.statusBar.SetPopulation(m.scheduler.Count(), m.scheduler.Limit())
	if m.scheduler.Capped() && m.statusBar.State != theme.StateEnded {
		m.statusBar.State = theme.StateEnded
		m.debugLog.Addf(debug.KindStream, "population cap %d reached, feed suspended", m.scheduler.Limit())
	}
}

func (m Model) title(workID string) string {
	if workID == "" {
		return ""
	}
	if t := m.palette.Title(workID); t != "" {
		return t
	}
	return workID
}

func (m Model) loadWorks() tea.Cmd {
	api, ctx := m.api, m.ctx
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		works, err := api.GetWorks(ctx)
		return worksMsg{works: works, err: err}
	}
}

func (m Model) loadHealth() tea.Cmd {
	api, ctx := m.api, m.ctx
	if api == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()
		h, err := api.GetHealth(ctx)
		return healthMsg{health: h, err: err}
	}
}

func (m Model) listen() tea.Cmd {
	feed, ctx := m.feed, m.ctx
	return func() tea.Msg {
		feed.Start(ctx)
		return readEvent(feed)()
	}
}

func readEvent(feed Feed) tea.Cmd {
	if feed == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-feed.Events()
		if !ok {
			return streamClosedMsg{}
		}
		return streamMsg{ev: ev}
	}
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FrameRate), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) sampleTick() tea.Cmd {
	return tea.Tick(m.cfg.AutoSpawnInterval, func(time.Time) tea.Msg {
		return sampleMsg{}
	})
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	if m.showDebug {
		body = m.debugLog.View(m.width, m.camera.Rows)
	} else {
		body = m.renderWorld()
	}

	sections := []string{
		m.statusBar.View(),
		body,
		m.help.View(m.keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderWorld() string {
	if !m.world.Available() {
		return lipgloss.Place(m.camera.Cols, m.camera.Rows, lipgloss.Center, lipgloss.Center,
			theme.StyleDimmed.Render("physics unavailable"))
	}
	canvas := render.Render(m.camera, render.Scene{
		Boxes:      m.world.Boxes(),
		Colliders:  m.world.Colliders(),
		HoveredBox: m.hoveredBox,
		Colors:     m.palette,
	})
	if !m.detail.Visible() {
		return canvas
	}
	return overlayRight(canvas, m.detail.View(), m.width, m.detail.Width())
}

// overlayRight draws panel over the right edge of base, clipping both to
// width.
func overlayRight(base, panel string, width, panelWidth int) string {
	left := uint(max(width-panelWidth, 0))
	lines := strings.Split(base, "\n")
	panelLines := strings.Split(panel, "\n")
	for i, line := range lines {
		if i >= len(panelLines) {
			break
		}
		line = truncate.String(line, left) + resetSeq + panelLines[i]
		lines[i] = truncate.String(line, uint(width)) + resetSeq
	}
	return strings.Join(lines, "\n")
}
