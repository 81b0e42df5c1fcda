package app

import (
	"context"
	"fmt"
	"time"

	"topgrade-gui/config"
	"topgrade-gui/keys"
	"topgrade-gui/log"
	"topgrade-gui/session"
	"topgrade-gui/ui"
	"topgrade-gui/ui/layout"
	"topgrade-gui/ui/overlay"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	// maxEventBatch is the number of session events applied per update.
	maxEventBatch = 256
	// mouseScrollLines is how far one wheel step scrolls the console.
	mouseScrollLines = 3
)

// Options configure the terminal front end.
type Options struct {
	// Session describes the command to run. Rows and Cols are replaced by the
	// console size once the window size is known.
	Session session.Options
	// Spawn starts the child. Nil uses a real pty.
	Spawn session.Spawner
	// AutoStart skips the welcome screen.
	AutoStart bool
	// Locale selects the UI language. Empty detects it from the environment.
	Locale string
	// RecordRuns saves every finished run to the state file.
	RecordRuns bool
	// Clipboard receives the copied log. Nil uses the system clipboard.
	Clipboard func(string) error
}

// Run is the main entrypoint into the application.
func Run(ctx context.Context, opts Options) error {
	h := newHome(ctx, opts)
	p := tea.NewProgram(
		h,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(), // Mouse scroll
	)
	_, err := p.Run()
	if termErr := h.registry.TerminateAll(); termErr != nil {
		log.WarningLog.Printf("failed to stop sessions: %v", termErr)
	}
	log.GetProfiler().LogStats()
	return err
}

type state int

const (
	// stateWelcome shows the start screen.
	stateWelcome state = iota
	// stateRunning is the state while a session is alive.
	stateRunning
	// stateFinished keeps the log of the last run on screen.
	stateFinished
)

type home struct {
	ctx  context.Context
	opts Options

	// -- Storage and Configuration --

	messages ui.Messages
	// appState holds the run history shown on the welcome screen
	appState *config.State
	// registry holds the live controllers so quitting can stop them
	registry *session.Registry
	spawn    session.Spawner

	// -- State --

	state state
	// ctrl is the current run, nil before the first one
	ctrl      *session.Controller
	startedAt time.Time

	width, height    int
	constraints      layout.Constraints
	ptyRows, ptyCols uint16

	// -- UI Components --

	header  *ui.Header
	console *ui.Console
	input   *ui.InputBar
	menu    *ui.Menu
	errBox  *ui.ErrBox
	welcome *overlay.WelcomeOverlay
	// global spinner instance. we plumb this down to where it's needed
	spinner spinner.Model

	copyToClipboard func(string) error
	now             func() time.Time
}

func newHome(ctx context.Context, opts Options) *home {
	locale := opts.Locale
	if locale == "" {
		locale = ui.DetectLocale()
	}
	messages := ui.MessagesFor(locale)

	spawn := opts.Spawn
	if spawn == nil {
		spawn = session.SpawnPTY
	}
	copyToClipboard := opts.Clipboard
	if copyToClipboard == nil {
		copyToClipboard = clipboard.WriteAll
	}

	h := &home{
		ctx:             ctx,
		opts:            opts,
		messages:        messages,
		appState:        config.LoadState(),
		registry:        session.NewRegistry(),
		spawn:           spawn,
		state:           stateWelcome,
		spinner:         spinner.New(spinner.WithSpinner(spinner.MiniDot)),
		console:         ui.NewConsole(),
		input:           ui.NewInputBar(messages.InputPlaceholder),
		menu:            ui.NewMenu(),
		errBox:          ui.NewErrBox(),
		copyToClipboard: copyToClipboard,
		now:             time.Now,
	}
	h.header = ui.NewHeader(&h.spinner, messages)
	h.welcome = overlay.NewWelcomeOverlay(messages.Title, messages.Description, messages.Start, &h.spinner)
	h.welcome.SetStatus(ui.FormatLastRun(h.appState.LastRun(), messages))
	h.input.Blur()
	return h
}

func (m *home) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, tickRefreshStateCmd}
	if m.opts.AutoStart {
		cmds = append(cmds, m.startRun())
	}
	return tea.Batch(cmds...)
}

func (m *home) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case hideErrMsg:
		m.errBox.Clear()
	case keyupMsg:
		m.menu.ClearKeydown()
		return m, nil
	case sessionStartedMsg:
		if m.ctrl == nil || msg.id != m.ctrl.ID() {
			return m, nil
		}
		if msg.err != nil {
			// the session ends on its own, SessionEnded updates the screen
			return m, m.handleError(msg.err)
		}
		if st := m.ctrl.State(); st == session.Running {
			m.header.SetState(st)
		}
		return m, nil
	case sessionEventsMsg:
		return m, m.handleEvents(msg)
	case runRecordedMsg:
		if msg.err != nil {
			return m, m.handleError(fmt.Errorf("failed to save run: %w", msg.err))
		}
		m.appState = msg.state
		m.welcome.SetStatus(ui.FormatLastRun(m.appState.LastRun(), m.messages))
		return m, nil
	case tickRefreshStateMsg:
		// another instance may have finished a run
		refreshed, err := m.appState.RefreshFromDisk()
		if err != nil {
			log.WarningLog.Printf("failed to refresh state: %v", err)
		} else if refreshed {
			m.welcome.SetStatus(ui.FormatLastRun(m.appState.LastRun(), m.messages))
		}
		return m, tickRefreshStateCmd
	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && m.state != stateWelcome {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				m.console.ScrollLines(-mouseScrollLines)
			case tea.MouseButtonWheelDown:
				m.console.ScrollLines(mouseScrollLines)
			}
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.updateLayout()
		return m, m.resizePty()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// updateLayout sets the sizes of the components from the window size.
func (m *home) updateLayout() {
	_, pending := m.input.Pending()
	c := layout.ComputeConstraints(m.width, m.height, pending)
	d := layout.ComputeDegradation(c)
	m.constraints = c

	m.header.SetWidth(m.width)
	m.header.SetCompact(d.HideHeaderCommand)
	m.menu.SetSize(c.MenuWidth, c.MenuHeight)
	m.menu.SetCompact(d.SingleLineMenu)
	m.errBox.SetSize(c.ErrBoxWidth, c.ErrBoxHeight)
	m.input.SetWidth(c.InputWidth)
	m.welcome.SetWidth(c.OverlayWidth)
	m.welcome.SetCompact(d.HideDescription)

	// without a live session the input bar is hidden and the log takes its rows
	consoleHeight := c.ConsoleHeight
	if m.state != stateRunning {
		consoleHeight += c.InputHeight
	}
	m.console.SetSize(c.ConsoleWidth, consoleHeight)
}

// resizePty passes the console size on to the child. The size ignores the prompt
// line of the input bar so a prompt does not resize the child while it waits.
func (m *home) resizePty() tea.Cmd {
	if m.width == 0 || m.height == 0 {
		return nil
	}
	rows, cols := layout.ComputeConstraints(m.width, m.height, false).PtySize()
	if rows == m.ptyRows && cols == m.ptyCols {
		return nil
	}
	m.ptyRows, m.ptyCols = rows, cols
	if m.ctrl == nil || m.ctrl.State().Ended() {
		return nil
	}
	if err := m.ctrl.Resize(rows, cols); err != nil {
		return m.handleError(err)
	}
	return nil
}

// startRun creates a controller for a new run and starts it in the background.
func (m *home) startRun() tea.Cmd {
	opts := m.opts.Session
	if m.ptyRows > 0 && m.ptyCols > 0 {
		opts.Rows, opts.Cols = m.ptyRows, m.ptyCols
	}
	ctrl := session.NewControllerWithDeps(opts, m.spawn)
	m.registry.Add(ctrl)

	m.ctrl = ctrl
	m.startedAt = m.now()
	m.state = stateRunning

	m.console.Clear()
	m.console.SetFocused(true)
	m.header.Start(ctrl.Command(), m.startedAt)
	m.input.ClearPrompt()
	m.input.Take()
	m.menu.SetState(ui.StateRunning)
	m.errBox.Clear()
	m.welcome.SetLoading(true)
	m.updateLayout()

	log.InfoLog.Printf("starting run of %s", ctrl.Command())

	ctx := m.ctx
	id := ctrl.ID()
	return tea.Batch(
		m.input.Focus(),
		func() tea.Msg {
			return sessionStartedMsg{id: id, err: ctrl.Start(ctx)}
		},
		waitForEvents(ctrl),
	)
}

// waitForEvents blocks for the next session event and returns it together with
// every event already queued behind it.
func waitForEvents(ctrl *session.Controller) tea.Cmd {
	events := ctrl.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionEventsMsg{ctrl: ctrl, closed: true}
		}
		batch := []session.Event{ev}
		for len(batch) < maxEventBatch {
			select {
			case ev, ok := <-events:
				if !ok {
					return sessionEventsMsg{ctrl: ctrl, events: batch, closed: true}
				}
				batch = append(batch, ev)
			default:
				return sessionEventsMsg{ctrl: ctrl, events: batch}
			}
		}
		return sessionEventsMsg{ctrl: ctrl, events: batch}
	}
}

func (m *home) handleEvents(msg sessionEventsMsg) tea.Cmd {
	var next tea.Cmd
	if !msg.closed {
		next = waitForEvents(msg.ctrl)
	}
	// events of a replaced run are drained and dropped
	if msg.ctrl != m.ctrl {
		return next
	}

	log.GetProfiler().RecordBatch(len(msg.events))
	cmds := []tea.Cmd{next}
	for _, ev := range msg.events {
		switch ev := ev.(type) {
		case session.OutputAppended:
			m.console.Write(ev.Text)
		case session.PromptRaised:
			m.input.SetPrompt(ev.Prompt)
			m.header.SetState(session.AwaitingInput)
			m.menu.SetState(ui.StatePrompt)
			m.console.GotoBottom()
			m.updateLayout()
		case session.PromptCleared:
			m.clearPrompt(ev.Prompt.ID)
		case session.SessionEnded:
			cmds = append(cmds, m.finishRun(ev))
		}
	}
	return tea.Batch(cmds...)
}

// clearPrompt returns the input bar to free input if it still shows prompt id.
func (m *home) clearPrompt(id uint64) {
	p, ok := m.input.Pending()
	if !ok || p.ID != id {
		return
	}
	m.input.ClearPrompt()
	if m.state == stateRunning {
		m.header.SetState(session.Running)
		m.menu.SetState(ui.StateRunning)
	}
	m.updateLayout()
}

func (m *home) finishRun(ev session.SessionEnded) tea.Cmd {
	finished := m.now()
	m.state = stateFinished
	m.header.Finish(ev.ExitCode, ev.Err, finished)
	m.menu.SetState(ui.StateFinished)
	m.input.ClearPrompt()
	m.input.Take()
	m.input.Blur()
	m.console.SetFocused(false)
	m.welcome.SetLoading(false)
	m.updateLayout()

	if !m.opts.RecordRuns {
		return nil
	}
	run := config.NewRunRecord(m.ctrl.Command(), m.startedAt, finished, ev.ExitCode, ev.Err, m.ctrl.Answered())
	return func() tea.Msg {
		state, err := config.RecordRun(run)
		return runRecordedMsg{state: state, err: err}
	}
}

// submitInput sends the typed line. A shown prompt is answered by id, so a line
// typed for a prompt that went away is never taken as the answer to the next one.
func (m *home) submitInput() tea.Cmd {
	if m.ctrl == nil {
		return nil
	}
	text := m.input.Take()

	var (
		outcome session.Outcome
		err     error
	)
	p, pending := m.input.Pending()
	if pending {
		outcome, err = m.ctrl.Respond(p.ID, text)
	} else {
		outcome, err = m.ctrl.SubmitInput(text)
	}

	switch outcome {
	case session.OutcomeAnswered:
		if pending {
			m.clearPrompt(p.ID)
		}
	case session.OutcomeForwarded:
	case session.OutcomeDropped:
		if pending {
			m.clearPrompt(p.ID)
		}
		return m.handleError(fmt.Errorf("input not sent: %w", err))
	case session.OutcomeFailed:
		return m.handleError(err)
	}
	return nil
}

func (m *home) copyLog() tea.Cmd {
	if err := m.copyToClipboard(m.console.PlainText()); err != nil {
		return m.handleError(fmt.Errorf("failed to copy log: %w", err))
	}
	m.errBox.SetInfo(m.messages.Copied)
	return m.hideErrLater()
}

func (m *home) handleQuit() (tea.Model, tea.Cmd) {
	if err := m.registry.TerminateAll(); err != nil {
		log.ErrorLog.Printf("failed to stop sessions: %v", err)
	}
	return m, tea.Quit
}

// handleMenuHighlighting returns a command to highlight the pressed key in the menu.
// Only keys the menu currently offers are highlighted.
func (m *home) handleMenuHighlighting(msg tea.KeyMsg) tea.Cmd {
	name, ok := keys.Lookup(msg.String())
	if !ok {
		return nil
	}
	if name == keys.KeySubmit && m.state == stateWelcome {
		name = keys.KeyStart
	}
	for _, option := range m.menu.Options() {
		if option == name {
			return m.keydownCallback(name)
		}
	}
	return nil
}

func (m *home) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Get the menu highlight command - this is batched with the action command later
	highlightCmd := m.handleMenuHighlighting(msg)

	name, ok := keys.Lookup(msg.String())
	if !ok {
		name = -1
	}
	if name == keys.KeyQuit {
		return m.handleQuit()
	}

	switch m.state {
	case stateWelcome:
		switch name {
		case keys.KeySubmit:
			return m, tea.Batch(highlightCmd, m.startRun())
		case keys.KeyExit:
			return m.handleQuit()
		}
	case stateRunning:
		switch name {
		case keys.KeySubmit:
			return m, tea.Batch(highlightCmd, m.submitInput())
		case keys.KeyScrollUp:
			m.console.ScrollUp()
		case keys.KeyScrollDown:
			m.console.ScrollDown()
		case keys.KeyBottom:
			m.console.GotoBottom()
		case keys.KeyCopy:
			return m, tea.Batch(highlightCmd, m.copyLog())
		default:
			// everything else is typed into the input bar, q included
			return m, tea.Batch(highlightCmd, m.input.Update(msg))
		}
	case stateFinished:
		switch name {
		case keys.KeyRerun:
			return m, tea.Batch(highlightCmd, m.startRun())
		case keys.KeyCopy:
			return m, tea.Batch(highlightCmd, m.copyLog())
		case keys.KeyScrollUp:
			m.console.ScrollUp()
		case keys.KeyScrollDown:
			m.console.ScrollDown()
		case keys.KeyBottom:
			m.console.GotoBottom()
		case keys.KeyExit:
			return m.handleQuit()
		}
	}
	return m, highlightCmd
}

type keyupMsg struct{}

// keydownCallback clears the menu option highlighting after 500ms.
func (m *home) keydownCallback(name keys.KeyName) tea.Cmd {
	m.menu.Keydown(name)
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(500 * time.Millisecond):
		}

		return keyupMsg{}
	}
}

// hideErrMsg implements tea.Msg and clears the error text from the screen.
type hideErrMsg struct{}

type tickRefreshStateMsg struct{}

// sessionStartedMsg reports the result of Controller.Start.
type sessionStartedMsg struct {
	id  string
	err error
}

// sessionEventsMsg carries a batch of events of one controller.
type sessionEventsMsg struct {
	ctrl   *session.Controller
	events []session.Event
	// closed is set once the event channel was closed
	closed bool
}

type runRecordedMsg struct {
	state *config.State
	err   error
}

// tickRefreshStateCmd reloads the run history every 2 seconds.
var tickRefreshStateCmd = func() tea.Msg {
	time.Sleep(2 * time.Second)
	return tickRefreshStateMsg{}
}

// handleError handles all errors which get bubbled up to the app. sets the error message. We return a callback tea.Cmd that returns a hideErrMsg message
// which clears the error message after 3 seconds.
func (m *home) handleError(err error) tea.Cmd {
	log.ErrorLog.Printf("%v", err)
	m.errBox.SetError(err)
	return m.hideErrLater()
}

func (m *home) hideErrLater() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
		case <-time.After(3 * time.Second):
		}

		return hideErrMsg{}
	}
}

var (
	warningLineStyle = lipgloss.NewStyle().Foreground(ui.StatusWarning)
	hintLineStyle    = ui.TextStyles.Muted
)

// statusLine is the bottom row: messages first, then the size warning, then the
// scroll hint.
func (m *home) statusLine() string {
	c := m.constraints
	line := func(style lipgloss.Style, text string) string {
		return lipgloss.Place(c.ErrBoxWidth, c.ErrBoxHeight, lipgloss.Center, lipgloss.Top, style.Render(text))
	}
	switch {
	case !m.errBox.Empty():
		return m.errBox.String()
	case c.ShowMinWarning:
		return line(warningLineStyle, fmt.Sprintf("terminal too small (%dx%d), need %dx%d",
			m.width, m.height, layout.MinWidth, layout.MinHeight))
	case m.state != stateWelcome && !m.console.Following():
		return line(hintLineStyle, m.messages.Follow)
	default:
		return m.errBox.String()
	}
}

func (m *home) View() string {
	profiler := log.GetProfiler()
	frameStart := time.Now()
	defer func() { profiler.RecordFrame(time.Since(frameStart)) }()

	if m.width == 0 || m.height == 0 {
		return ""
	}
	c := m.constraints

	parts := []string{m.header.Render(m.now())}
	if c.HeaderGap > 0 {
		parts = append(parts, "")
	}

	switch m.state {
	case stateWelcome:
		parts = append(parts, lipgloss.Place(m.width, c.ConsoleHeight+c.InputHeight,
			lipgloss.Center, lipgloss.Center, m.welcome.Render()))
	default:
		done := profiler.StartRender("console")
		parts = append(parts, m.console.String())
		done()
		if m.state == stateRunning {
			parts = append(parts, m.input.String())
		}
	}

	parts = append(parts, m.menu.String(), m.statusLine())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
