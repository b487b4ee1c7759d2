package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"todo-api/domain"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Reverse(true)
	doneStyle     = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)

	boxChecked   = "☑"
	boxUnchecked = "☐"
)

type keyMap struct {
	Add, Focus, Up, Down, Delete, Done, Reload, Yes, No, Quit key.Binding
}

var keys = keyMap{
	Add:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add")),
	Focus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Done:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "mark done")),
	Reload: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	No:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "cancel")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// API is the subset of Client the terminal front end calls.
type API interface {
	List(ctx context.Context) ([]domain.TodoItem, error)
	Create(ctx context.Context, title string) (domain.TodoItem, error)
	MarkDone(ctx context.Context, id string) (domain.TodoItem, error)
	Delete(ctx context.Context, id string) error
}

// Model is the bubbletea program state. All todo semantics live in State and
// Update; Model only maps keys to events and effects to commands.
type Model struct {
	api     API
	timeout time.Duration
	state   State
	input   textinput.Model
	cursor  int
}

// NewModel builds the terminal front end over api.
func NewModel(api API) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 200
	ti.Focus()
	return Model{api: api, timeout: 30 * time.Second, input: ti}
}

// State returns the current view state.
func (m Model) State() State { return m.state }

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return Mounted{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Event:
		return m.apply(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.state.ConfirmID != "" {
		switch {
		case key.Matches(msg, keys.Yes):
			return m.apply(DeleteConfirmed{})
		case key.Matches(msg, keys.No):
			return m.apply(DeleteCancelled{})
		}
		return m, nil
	}
	if key.Matches(msg, keys.Focus) {
		if m.input.Focused() {
			m.input.Blur()
		} else {
			m.input.Focus()
		}
		return m, nil
	}

	if m.input.Focused() {
		if key.Matches(msg, keys.Add) {
			return m.apply(AddRequested{})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != m.state.Title {
			m.state, _ = Update(m.state, TitleChanged{Title: m.input.Value()})
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.state.Items)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Reload):
		return m.apply(ReloadRequested{})
	case key.Matches(msg, keys.Delete):
		if id := m.selected(); id != "" {
			return m.apply(DeleteRequested{ID: id})
		}
	case key.Matches(msg, keys.Done):
		if id := m.selected(); id != "" {
			return m.apply(MarkDoneRequested{ID: id})
		}
	}
	return m, nil
}

func (m Model) selected() string {
	if m.cursor < 0 || m.cursor >= len(m.state.Items) {
		return ""
	}
	return m.state.Items[m.cursor].ID
}

func (m Model) apply(ev Event) (tea.Model, tea.Cmd) {
	next, effects := Update(m.state, ev)
	m.state = next
	if m.input.Value() != m.state.Title {
		m.input.SetValue(m.state.Title)
	}
	if n := len(m.state.Items); m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		cmds = append(cmds, m.run(eff))
	}
	return m, tea.Batch(cmds...)
}

// run turns an effect into a command whose result message is an Event.
func (m Model) run(eff Effect) tea.Cmd {
	api, timeout := m.api, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		switch eff := eff.(type) {
		case LoadList:
			items, err := api.List(ctx)
			if err != nil {
				return ListFailed{Err: err}
			}
			return ListLoaded{Items: items}
		case CreateTodo:
			item, err := api.Create(ctx, eff.Title)
			if err != nil {
				return AddFailed{Err: err}
			}
			return AddSucceeded{Item: item}
		case DeleteTodo:
			if err := api.Delete(ctx, eff.ID); err != nil {
				return DeleteFailed{ID: eff.ID, Err: err}
			}
			return DeleteSucceeded{ID: eff.ID}
		case MarkDone:
			item, err := api.MarkDone(ctx, eff.ID)
			if err != nil {
				return MarkDoneFailed{ID: eff.ID, Err: err}
			}
			return MarkDoneSucceeded{Item: item}
		}
		return nil
	}
}

func (m Model) View() string {
	var b strings.Builder

	done := 0
	for _, it := range m.state.Items {
		if it.IsDone {
			done++
		}
	}
	fmt.Fprintf(&b, "%s   %s %d  %s %d\n\n",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), len(m.state.Items)-done,
	)
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if m.state.Loading && len(m.state.Items) == 0 {
		b.WriteString(mutedStyle.Render("loading...") + "\n")
	}
	for i, it := range m.state.Items {
		box, text := mutedStyle.Render(boxUnchecked), it.Title
		if it.IsDone {
			box, text = successStyle.Render(boxChecked), doneStyle.Render(it.Title)
		}
		if m.state.Busy(it.ID) {
			text += mutedStyle.Render(" (deleting)")
		}
		prefix := "  "
		if i == m.cursor && !m.input.Focused() {
			prefix = selectedStyle.Render("> ")
		}
		fmt.Fprintf(&b, "%s%s %s\n", prefix, box, text)
	}

	if m.state.ConfirmID != "" {
		b.WriteString("\n" + pendingStyle.Render("Delete this todo? (y/n)") + "\n")
	}
	if m.state.Error != "" {
		b.WriteString("\n" + errorStyle.Render("✖ "+m.state.Error) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(m.help()) + "\n")
	return b.String()
}

func (m Model) help() string {
	bindings := []key.Binding{keys.Add, keys.Focus, keys.Quit}
	if !m.input.Focused() {
		bindings = []key.Binding{keys.Up, keys.Down, keys.Done, keys.Delete, keys.Reload, keys.Focus, keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
