package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ragchat/internal/service"
)

// Asker is the TUI-facing subset of the RAG service.
type Asker interface {
	Ask(ctx context.Context, query string) (*service.Answer, error)
}

type answerMsg struct {
	query string
	text  string
	ans   *service.Answer
	err   error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx      context.Context
	service  Asker
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	overview string
	status   string
	response string
	sources  []string
	busy     bool
	ready    bool
}

// New creates a new TUI model instance.
func New(ctx context.Context, svc Asker, overview string) Model {
	ti := textinput.New()
	ti.Prompt = "You: "
	ti.Placeholder = "Ask me anything based on the uploaded documents!"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:      ctx,
		service:  svc,
		input:    ti,
		viewport: vp,
		spinner:  sp,
		overview: overview,
		status:   "Type a question and press Enter.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + overview, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case answerMsg:
		m.busy = false
		m.sources = nil
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.response = ""
		} else {
			m.status = fmt.Sprintf("Answered %q", msg.query)
			m.response = msg.text
			if msg.ans != nil {
				for _, s := range msg.ans.Sources {
					m.sources = append(m.sources, fmt.Sprintf("[%s] %s", s.Document.ID, s.Document.Text))
				}
			}
		}
		m.viewport.SetContent(m.renderResponse())
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.Type == tea.KeyEnter {
			q := m.input.Value()
			if strings.TrimSpace(q) == "" || m.busy {
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		}
		switch msg.String() {
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		ans, err := svc.Ask(ctx, q)
		text, err := service.ResponseText(ans, err)
		return answerMsg{query: q, text: text, ans: ans, err: err}
	}
}

// View renders the TUI layout and current response.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("AI Chatbot")
	overview := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.overview)
	input := queryBoxStyle.Render(m.input.View())
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	status = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(status)
	response := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + overview + "\n" + response + "\n" + input + "\n" + status
}

func (m Model) renderResponse() string {
	if m.response == "" {
		return labelStyle.Render("Bot:")
	}
	out := labelStyle.Render("Bot:") + "\n" + m.response
	if len(m.sources) > 0 {
		out += "\n\n" + sourceStyle.Render("Sources:\n"+strings.Join(m.sources, "\n"))
	}
	return out
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
