package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

type mockQueryService struct {
	answer    *domain.Answer
	err       error
	questions []string
}

func (m *mockQueryService) Answer(_ context.Context, question string) (*domain.Answer, error) {
	m.questions = append(m.questions, question)
	return m.answer, m.err
}

type mockStatus struct{ entries int }

func (m *mockStatus) Ready() bool  { return true }
func (m *mockStatus) Entries() int { return m.entries }

func newTestApp(t *testing.T, query *mockQueryService) *App {
	t.Helper()
	app, err := NewApp(&Ports{Query: query, Status: &mockStatus{entries: 12}})
	require.NoError(t, err)
	app.SetDimensions(100, 30)
	return app
}

func typeText(app *App, text string) {
	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// runBatch executes cmd and every command it batches, returning the messages.
func runBatch(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runBatch(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// submit types question, presses enter and delivers the answer.
func submit(t *testing.T, app *App, question string) {
	t.Helper()
	typeText(app, question)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	submitted, ok := cmd().(messages.QuestionSubmitted)
	require.True(t, ok)

	_, cmd = app.Update(submitted)
	assert.Equal(t, submitted.Question, app.Pending())
	for _, msg := range runBatch(cmd) {
		if answer, ok := msg.(messages.AnswerReceived); ok {
			app.Update(answer)
		}
	}
}

func TestNewApp(t *testing.T) {
	t.Run("requires a query service", func(t *testing.T) {
		app, err := NewApp(&Ports{})
		assert.ErrorIs(t, err, ErrMissingQueryService)
		assert.Nil(t, app)
	})

	t.Run("starts unsized", func(t *testing.T) {
		app, err := NewApp(&Ports{Query: &mockQueryService{}})
		require.NoError(t, err)
		assert.False(t, app.Ready())
		assert.Equal(t, "Loading...", app.View())
		assert.NotNil(t, app.Init())
	})
}

func TestApp_WindowSize(t *testing.T) {
	app, err := NewApp(&Ports{Query: &mockQueryService{}})
	require.NoError(t, err)

	app.Update(tea.WindowSizeMsg{Width: 90, Height: 40})

	assert.True(t, app.Ready())
	assert.Equal(t, 90, app.viewport.Width)
	assert.Equal(t, 35, app.viewport.Height)
	assert.Contains(t, app.View(), "Ask anything")
}

func TestApp_AskAndAnswer(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{
		Answer:  "Stripes confuse biting flies.",
		Sources: []string{"Zebras keep their stripes because stripes confuse biting flies."},
	}}
	app := newTestApp(t, query)

	submit(t, app, "Why stripes?")

	assert.Equal(t, []string{"Why stripes?"}, query.questions)
	assert.Empty(t, app.Pending())
	assert.Equal(t, []string{"Why stripes?"}, app.Transcript())
	assert.Empty(t, app.input.Value(), "input is cleared after sending")
	assert.Equal(t, status.StateReady, app.statusbar.State())

	view := app.View()
	assert.Contains(t, view, "Why stripes?")
	assert.Contains(t, view, "Stripes confuse biting flies.")
	assert.Contains(t, view, "Source 1")
	assert.Contains(t, view, "12 chunks indexed")
}

func TestApp_ToggleSources(t *testing.T) {
	query := &mockQueryService{answer: &domain.Answer{Answer: "a", Sources: []string{"passage one", "passage two"}}}
	app := newTestApp(t, query)
	submit(t, app, "q")

	app.Update(tea.KeyMsg{Type: tea.KeyCtrlS})

	assert.False(t, app.showSources)
	assert.Contains(t, app.renderTranscript(), "(2 sources hidden)")
	assert.NotContains(t, app.renderTranscript(), "passage one")
}

func TestApp_NoContextAnswer(t *testing.T) {
	app := newTestApp(t, &mockQueryService{answer: domain.EmptyAnswer()})

	submit(t, app, "unrelated?")

	transcript := app.renderTranscript()
	assert.Contains(t, transcript, domain.NoContextAnswer)
	assert.NotContains(t, transcript, "Source 1")
}

func TestApp_ErrorKeepsChatUsable(t *testing.T) {
	query := &mockQueryService{err: fmt.Errorf("%w: model: upstream 503", domain.ErrGeneration)}
	app := newTestApp(t, query)

	submit(t, app, "first")

	assert.Equal(t, status.StateError, app.statusbar.State())
	assert.Equal(t, "the language model failed", app.statusbar.Message())
	assert.Contains(t, app.renderTranscript(), "upstream 503")

	query.err = nil
	query.answer = &domain.Answer{Answer: "second answer", Sources: []string{"s"}}
	submit(t, app, "second")

	assert.Equal(t, status.StateReady, app.statusbar.State())
	assert.Equal(t, []string{"first", "second"}, app.Transcript())
}

func TestApp_EmptyQuestionIsIgnored(t *testing.T) {
	query := &mockQueryService{}
	app := newTestApp(t, query)

	typeText(app, "   ")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, query.questions)
}

func TestApp_SendWhilePendingIsIgnored(t *testing.T) {
	app := newTestApp(t, &mockQueryService{answer: &domain.Answer{Answer: "a"}})

	app.Update(messages.QuestionSubmitted{Question: "slow one"})
	require.Equal(t, "slow one", app.Pending())
	assert.Equal(t, status.StateThinking, app.statusbar.State())
	assert.Contains(t, app.renderTranscript(), "slow one")

	typeText(app, "another")
	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, "another", app.input.Value(), "the draft is kept")
}

func TestApp_Clear(t *testing.T) {
	app := newTestApp(t, &mockQueryService{answer: &domain.Answer{Answer: "a"}})
	submit(t, app, "q")

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, cmd)
	app.Update(cmd())

	assert.Empty(t, app.Transcript())
	assert.Contains(t, app.renderTranscript(), "Ask anything")
}

func TestApp_Quit(t *testing.T) {
	for _, k := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		app := newTestApp(t, &mockQueryService{})

		_, cmd := app.Update(tea.KeyMsg{Type: k})

		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestApp_QuestionsUseAppContext(t *testing.T) {
	type ctxKey struct{}
	var seen context.Context
	query := &ctxQuery{fn: func(ctx context.Context) { seen = ctx }}

	app, err := NewApp(&Ports{Query: query})
	require.NoError(t, err)
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	app.WithContext(ctx).SetDimensions(80, 24)

	cmd := app.ask("q")
	runBatch(cmd)

	require.NotNil(t, seen)
	assert.Equal(t, "v", seen.Value(ctxKey{}))
}

type ctxQuery struct{ fn func(context.Context) }

func (q *ctxQuery) Answer(ctx context.Context, _ string) (*domain.Answer, error) {
	q.fn(ctx)
	return domain.EmptyAnswer(), nil
}
