package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// exchange is one question and its outcome.
type exchange struct {
	question string
	answer   *domain.Answer
	err      error
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	input     *input.QuestionInput
	statusbar *status.Bar
	viewport  viewport.Model

	transcript  []exchange
	pending     string
	showSources bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	bar := status.NewBar(s, km)
	if ports.Status != nil {
		bar.SetEntries(ports.Status.Entries())
	}

	return &App{
		ports:       ports,
		ctx:         context.Background(),
		styles:      s,
		keymap:      km,
		input:       input.NewQuestionInput(s),
		statusbar:   bar,
		viewport:    viewport.New(80, 20),
		showSources: true,
	}, nil
}

// WithContext sets the context questions are asked under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle("docqa"),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.QuestionSubmitted:
		return a, a.ask(msg.Question)

	case messages.AnswerReceived:
		a.handleAnswer(msg)
		return a, nil

	case messages.TranscriptCleared:
		a.transcript = nil
		a.refresh()
		return a, nil
	}

	var cmd tea.Cmd
	a.statusbar, cmd = a.statusbar.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Send):
		question := strings.TrimSpace(a.input.Value())
		if question == "" || a.pending != "" {
			return a, nil
		}
		a.input.Reset()
		return a, func() tea.Msg { return messages.QuestionSubmitted{Question: question} }

	case key.Matches(msg, a.keymap.ToggleSources):
		a.showSources = !a.showSources
		a.refresh()
		return a, nil

	case key.Matches(msg, a.keymap.Clear):
		if a.pending != "" {
			return a, nil
		}
		return a, func() tea.Msg { return messages.TranscriptCleared{} }

	case key.Matches(msg, a.keymap.ScrollUp):
		a.viewport.HalfViewUp()
		return a, nil

	case key.Matches(msg, a.keymap.ScrollDown):
		a.viewport.HalfViewDown()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask starts answering question in the background.
func (a *App) ask(question string) tea.Cmd {
	a.pending = question
	a.refresh()

	ctx, query := a.ctx, a.ports.Query
	answerCmd := func() tea.Msg {
		start := time.Now()
		answer, err := query.Answer(ctx, question)
		return messages.AnswerReceived{
			Question: question,
			Answer:   answer,
			Err:      err,
			Elapsed:  time.Since(start),
		}
	}
	return tea.Batch(a.statusbar.StartThinking(), answerCmd)
}

func (a *App) handleAnswer(msg messages.AnswerReceived) {
	a.pending = ""
	a.transcript = append(a.transcript, exchange{question: msg.Question, answer: msg.Answer, err: msg.Err})

	if msg.Err != nil {
		a.statusbar.SetState(status.StateError)
		a.statusbar.SetMessage(errorSummary(msg.Err))
	} else {
		a.statusbar.SetState(status.StateReady)
		a.statusbar.SetElapsed(msg.Elapsed)
	}
	if a.ports.Status != nil {
		a.statusbar.SetEntries(a.ports.Status.Entries())
	}
	a.refresh()
}

// errorSummary names the failing stage without the full error chain.
func errorSummary(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, domain.ErrGeneration):
		return "the language model failed"
	case errors.Is(err, domain.ErrRetrieval):
		return "retrieval failed"
	case errors.Is(err, domain.ErrEngineNotReady):
		return "no index loaded"
	default:
		return err.Error()
	}
}

// refresh re-renders the transcript into the viewport and scrolls to the end.
func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	width := max(a.viewport.Width-2, 20)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	if len(a.transcript) == 0 && a.pending == "" {
		b.WriteString(a.styles.Muted.Render("Ask anything about the indexed documents."))
		return b.String()
	}

	for i, ex := range a.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		a.renderQuestion(&b, wrap, ex.question)
		switch {
		case ex.err != nil:
			b.WriteString(wrap.Inherit(a.styles.Error).Render(ex.err.Error()))
			b.WriteString("\n")
		case ex.answer == nil:
		case ex.answer.Answer == domain.NoContextAnswer:
			b.WriteString(a.styles.AssistantLabel.Render("docqa: "))
			b.WriteString(a.styles.NoContext.Render(ex.answer.Answer))
			b.WriteString("\n")
		default:
			b.WriteString(a.styles.AssistantLabel.Render("docqa:"))
			b.WriteString("\n")
			b.WriteString(wrap.Inherit(a.styles.Answer).Render(ex.answer.Answer))
			b.WriteString("\n")
			a.renderSources(&b, width, ex.answer.Sources)
		}
	}

	if a.pending != "" {
		if len(a.transcript) > 0 {
			b.WriteString("\n")
		}
		a.renderQuestion(&b, wrap, a.pending)
		b.WriteString(a.styles.Muted.Render("..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (a *App) renderQuestion(b *strings.Builder, wrap lipgloss.Style, question string) {
	b.WriteString(a.styles.UserLabel.Render("you: "))
	b.WriteString(wrap.Render(question))
	b.WriteString("\n")
}

func (a *App) renderSources(b *strings.Builder, width int, sources []string) {
	if len(sources) == 0 {
		return
	}
	if !a.showSources {
		b.WriteString(a.styles.Muted.Render(fmt.Sprintf("(%d sources hidden)", len(sources))))
		b.WriteString("\n")
		return
	}
	for i, src := range sources {
		b.WriteString(a.styles.Muted.Render(fmt.Sprintf("Source %d", i+1)))
		b.WriteString("\n")
		b.WriteString(a.styles.Source.Width(width - 2).Render(src))
		b.WriteString("\n")
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("docqa"),
		a.viewport.View(),
		a.input.View(),
		a.statusbar.View(),
	)
}

// Run starts the chat in the alternate screen.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sizes every component for a terminal of width x height.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// title, input (3 lines with border) and status bar
	const chrome = 1 + 3 + 1
	a.viewport.Width = width
	a.viewport.Height = max(height-chrome, 3)
	a.input.SetWidth(width)
	a.statusbar.SetWidth(width)
	a.refresh()
}

// Pending returns the question being answered, if any.
func (a *App) Pending() string {
	return a.pending
}

// Transcript returns the answered questions in order.
func (a *App) Transcript() []string {
	out := make([]string, len(a.transcript))
	for i, ex := range a.transcript {
		out[i] = ex.question
	}
	return out
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}
