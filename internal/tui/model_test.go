package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ragchat/internal/completion"
	"ragchat/internal/domain"
	"ragchat/internal/service"
)

type stubAsker struct {
	queries []string
	ans     *service.Answer
	err     error
}

func (s *stubAsker) Ask(_ context.Context, query string) (*service.Answer, error) {
	s.queries = append(s.queries, query)
	return s.ans, s.err
}

func sized(m Model) Model {
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(Model)
}

// submit types q, presses Enter and feeds the answer produced by the
// resulting commands back into the model.
func submit(t *testing.T, m Model, q string) Model {
	t.Helper()
	m.input.SetValue(q)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("Enter produced no command")
	}
	if !m.busy {
		t.Error("model should be busy while a question is in flight")
	}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("Enter should batch the spinner and the question")
	}
	var answer tea.Msg
	for _, c := range batch {
		if msg, ok := c().(answerMsg); ok {
			answer = msg
		}
	}
	if answer == nil {
		t.Fatal("Enter did not ask")
	}
	next, _ = m.Update(answer)
	return next.(Model)
}

func TestModel_AnswerRendered(t *testing.T) {
	a := &stubAsker{ans: &service.Answer{
		Text:    "The sky is blue.",
		Sources: []domain.SearchResult{{Document: domain.Document{ID: "2", Text: "the sky is blue"}}},
	}}
	m := sized(New(context.Background(), a, "cats are mammals"))
	m = submit(t, m, "what is blue?")

	if m.busy {
		t.Error("model still busy after answer")
	}
	view := m.View()
	for _, want := range []string{"AI Chatbot", "cats are mammals", "Bot:", "The sky is blue.", "[2] the sky is blue"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if len(a.queries) == 0 || a.queries[0] != "what is blue?" {
		t.Errorf("queries = %q", a.queries)
	}
}

func TestModel_CompletionErrorShownAsResponse(t *testing.T) {
	a := &stubAsker{
		ans: &service.Answer{},
		err: &completion.Error{Kind: completion.ErrKindRateLimit, Cause: errors.New("status 429: slow down")},
	}
	m := sized(New(context.Background(), a, ""))
	m = submit(t, m, "q")

	if m.response != "Error generating response: status 429: slow down" {
		t.Errorf("response = %q", m.response)
	}
}

func TestModel_OtherErrorShownInStatus(t *testing.T) {
	a := &stubAsker{err: errors.New("store unavailable")}
	m := sized(New(context.Background(), a, ""))
	m = submit(t, m, "q")

	if m.response != "" {
		t.Errorf("response = %q, want empty", m.response)
	}
	if !strings.Contains(m.status, "store unavailable") {
		t.Errorf("status = %q", m.status)
	}
}

func TestModel_PassesQueryUnchanged(t *testing.T) {
	a := &stubAsker{ans: &service.Answer{Text: "Blue."}}
	m := sized(New(context.Background(), a, ""))
	submit(t, m, "  what is blue?  ")

	if len(a.queries) != 1 || a.queries[0] != "  what is blue?  " {
		t.Errorf("queries = %q, want the input as typed", a.queries)
	}
}

func TestModel_EmptyInputIgnored(t *testing.T) {
	a := &stubAsker{}
	m := sized(New(context.Background(), a, ""))
	m.input.SetValue("   ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty input should not produce a command")
	}
	if next.(Model).busy {
		t.Error("empty input should not start a request")
	}
}

func TestModel_Quit(t *testing.T) {
	m := New(context.Background(), &stubAsker{}, "")
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD} {
		_, cmd := m.Update(tea.KeyMsg{Type: k})
		if cmd == nil {
			t.Fatalf("%v: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%v did not quit", k)
		}
	}
}

func TestModel_LoadingBeforeSize(t *testing.T) {
	m := New(context.Background(), &stubAsker{}, "")
	if m.View() != "Loading..." {
		t.Errorf("View = %q", m.View())
	}
}
