package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/christopherklint97/clarity/internal/engine"
)

// Processor turns chat input into an envelope.
type Processor interface {
	ProcessText(ctx context.Context, text string) (*engine.Result, error)
}

type viewState int

const (
	inputView viewState = iota
	loadingView
)

var quitWords = map[string]bool{"quit": true, "exit": true, "q": true}

type resultMsg struct {
	result *engine.Result
	err    error
}

// App is the interactive chat loop. Each submission is processed in turn
// and its rendered result stays above the input until the next one.
type App struct {
	state   viewState
	input   inputModel
	spinner spinner.Model

	processor Processor
	timeout   time.Duration

	last    string
	results []*engine.Result
}

func NewApp(p Processor, timeout time.Duration) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &App{
		state:     inputView,
		input:     newInputModel(),
		spinner:   s,
		processor: p,
		timeout:   timeout,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.textarea.Focus(), a.spinner.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
	case resultMsg:
		return a.handleResult(msg)
	}

	switch a.state {
	case inputView:
		return a.updateInput(msg)
	case loadingView:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) View() string {
	var sb strings.Builder
	sb.WriteString(Banner())
	sb.WriteString("\n\n")
	if a.last != "" {
		sb.WriteString(a.last)
		sb.WriteString("\n\n")
	}
	if a.state == loadingView {
		sb.WriteString(a.spinner.View() + " Thinking...")
		return sb.String()
	}
	sb.WriteString(a.input.View())
	return sb.String()
}

// Results returns every envelope produced during the session.
func (a *App) Results() []*engine.Result {
	return a.results
}

func (a *App) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.String() == "enter" {
		text := a.input.Value()
		if quitWords[strings.ToLower(text)] {
			return a, tea.Quit
		}
		if text == "" {
			return a, nil
		}
		a.state = loadingView
		a.input.Reset()
		return a, tea.Batch(a.spinner.Tick, a.process(text))
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleResult(msg resultMsg) (tea.Model, tea.Cmd) {
	a.state = inputView
	if msg.err != nil {
		a.last = Status(StatusError, msg.err.Error())
	} else {
		a.results = append(a.results, msg.result)
		a.last = RenderResult(msg.result)
	}
	return a, a.input.textarea.Focus()
}

func (a *App) process(text string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		result, err := a.processor.ProcessText(ctx, text)
		return resultMsg{result: result, err: err}
	}
}
