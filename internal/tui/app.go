package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JohnDeved/crackmes-cli/internal/crackme"
	"github.com/JohnDeved/crackmes-cli/internal/picker"
)

// Messages
type fetchedMsg struct {
	index int
	desc  string
	err   error
}

// Model is the Bubble Tea model of the picker. While a description fetch is
// in flight, key presses are queued and replayed once it has been applied,
// and the view keeps showing the frame from before the key that started it.
type Model struct {
	ctx       context.Context
	session   *picker.Session
	describer picker.Describer
	title     string
	spinner   spinner.Model
	initCmd   tea.Cmd
	busy      bool
	queued    []picker.Event
	err       error
	frame     string // last frame rendered while idle
	width     int
	height    int
	offset    int // viewport scroll offset
}

// NewModel creates the picker model over records.
func NewModel(ctx context.Context, records []*crackme.Record, d picker.Describer, title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	m := Model{
		ctx:       ctx,
		session:   picker.NewSession(records),
		describer: d,
		title:     title,
		spinner:   s,
	}
	m.initCmd = m.startPrefetch()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initCmd)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.normalizeViewport()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.session.Apply(picker.Event{Key: picker.KeyEscape})
			return m, tea.Quit
		}
		m.queued = append(m.queued, keyEvents(msg)...)
		if m.busy {
			return m, nil
		}
		return m.drain()

	case fetchedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("fetching description: %w", msg.err)
			return m, tea.Quit
		}
		m.session.Fill(m.ctx, msg.index, msg.desc)
		if cmd := m.startPrefetch(); cmd != nil {
			return m, cmd
		}
		return m.drain()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// drain applies queued events until one starts a fetch or ends the session.
func (m Model) drain() (tea.Model, tea.Cmd) {
	for len(m.queued) > 0 {
		m.frame = m.render()
		ev := m.queued[0]
		m.queued = m.queued[1:]
		if m.session.Apply(ev) {
			m.queued = nil
			return m, tea.Quit
		}
		m.normalizeViewport()
		if cmd := m.startPrefetch(); cmd != nil {
			return m, cmd
		}
	}
	return m, nil
}

// startPrefetch issues the fetch for the first record near the cursor still
// missing a description, or clears busy when there is none.
func (m *Model) startPrefetch() tea.Cmd {
	pending := m.session.Pending()
	if len(pending) == 0 {
		m.busy = false
		return nil
	}
	m.busy = true
	return m.fetchCmd(pending[0])
}

func (m Model) fetchCmd(i int) tea.Cmd {
	ctx, d, id := m.ctx, m.describer, m.session.Record(i).ID
	return func() tea.Msg {
		desc, err := d.Description(ctx, id)
		return fetchedMsg{index: i, desc: desc, err: err}
	}
}

// keyEvents maps a key press to picker events. Pasted text yields one event
// per rune; every key without a binding becomes KeyOther.
func keyEvents(msg tea.KeyMsg) []picker.Event {
	switch msg.Type {
	case tea.KeyEnter:
		return []picker.Event{{Key: picker.KeyEnter}}
	case tea.KeyEsc:
		return []picker.Event{{Key: picker.KeyEscape}}
	case tea.KeyUp, tea.KeyCtrlK:
		return []picker.Event{{Key: picker.KeyUp}}
	case tea.KeyDown, tea.KeyCtrlJ:
		return []picker.Event{{Key: picker.KeyDown}}
	case tea.KeyBackspace:
		return []picker.Event{{Key: picker.KeyBackspace}}
	case tea.KeySpace:
		return []picker.Event{{Key: picker.KeyRune, Rune: ' '}}
	case tea.KeyRunes:
		if msg.Alt || len(msg.Runes) == 0 {
			break
		}
		events := make([]picker.Event, len(msg.Runes))
		for i, r := range msg.Runes {
			events[i] = picker.Event{Key: picker.KeyRune, Rune: r}
		}
		return events
	}
	return []picker.Event{{Key: picker.KeyOther}}
}

// Selected returns the record chosen with Enter, or nil.
func (m Model) Selected() *crackme.Record {
	return m.session.Selected()
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error {
	return m.err
}

// Run starts the picker and blocks until the user picks a record or leaves.
// A nil record with a nil error means the user left without picking.
func Run(ctx context.Context, records []*crackme.Record, d picker.Describer, title string) (*crackme.Record, error) {
	p := tea.NewProgram(NewModel(ctx, records, d, title), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m := final.(Model)
	if m.err != nil {
		return nil, m.err
	}
	return m.Selected(), nil
}
