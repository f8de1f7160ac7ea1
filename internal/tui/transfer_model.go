package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rshade/splairdrop/internal/engine"
	"github.com/rshade/splairdrop/internal/engine/batch"
)

// Layout constants.
const (
	maxBarWidth = 60
	barPadding  = 4
)

// ProgressMsg carries a progress snapshot from the engine.
type ProgressMsg struct {
	Snapshot batch.ProgressSnapshot
}

// DoneMsg is sent once the pass has returned.
type DoneMsg struct {
	Report *engine.Report
	Err    error
}

// RunFunc executes a pass, reporting progress through the callback. stop is
// closed when the user asks to end the pass after the current batch.
type RunFunc func(ctx context.Context, stop <-chan struct{}, progress batch.ProgressCallback) (*engine.Report, error)

// TransferModel is the Bubble Tea model shown while a pass runs.
//
//nolint:recvcheck // Bubble Tea requires value receivers for Init/Update/View interface methods.
type TransferModel struct {
	title    string
	total    int
	bar      progress.Model
	spinner  spinner.Model
	snapshot batch.ProgressSnapshot

	stop        func()
	interrupted bool

	done   bool
	report *engine.Report
	err    error
}

// NewTransferModel creates a model for a pass of total transfers. stop is
// invoked the first time the user interrupts.
func NewTransferModel(title string, total int, stop func()) TransferModel {
	return TransferModel{
		title:   title,
		total:   total,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxBarWidth)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(TitleStyle)),
		stop:    stop,
	}
}

// Init starts the spinner.
func (m TransferModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model state.
func (m TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(maxBarWidth, max(msg.Width-barPadding, 1))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// The pass stops between batches; DoneMsg ends the program.
			if !m.interrupted && m.stop != nil {
				m.stop()
			}
			m.interrupted = true
		}
		return m, nil

	case ProgressMsg:
		m.snapshot = msg.Snapshot
		return m, nil

	case DoneMsg:
		m.done = true
		m.report = msg.Report
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the progress bar and counters.
func (m TransferModel) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), TitleStyle.Render(m.title))
	b.WriteString(m.bar.ViewAs(m.snapshot.Ratio()))
	b.WriteString("\n")
	b.WriteString(MutedStyle.Render(fmt.Sprintf(
		"batch %d/%d  transfers %d/%d",
		m.snapshot.ProcessedBatches, m.snapshot.TotalBatches,
		m.snapshot.ProcessedItems, m.total,
	)))
	if m.snapshot.Remaining > 0 {
		b.WriteString(MutedStyle.Render("  eta " + m.snapshot.Remaining.Round(time.Second).String()))
	}
	b.WriteString("\n")
	if m.interrupted {
		b.WriteString(SkippedStyle.Render("stopping after the current batch..."))
		b.WriteString("\n")
	}
	return b.String()
}

// Report returns the report delivered by DoneMsg, if any.
func (m TransferModel) Report() *engine.Report {
	return m.report
}

// Err returns the error delivered by DoneMsg, if any.
func (m TransferModel) Err() error {
	return m.err
}

// Interrupted reports whether the user asked to stop.
func (m TransferModel) Interrupted() bool {
	return m.interrupted
}

// RunWithProgress runs fn while rendering a TransferModel to out. Keyboard
// interrupts close the stop channel passed to fn; ctx is never cancelled
// here, so transfers awaiting confirmation are not abandoned.
func RunWithProgress(
	ctx context.Context,
	title string,
	total int,
	in io.Reader,
	out io.Writer,
	fn RunFunc,
) (*engine.Report, error) {
	stop := make(chan struct{})
	var once sync.Once
	requestStop := func() { once.Do(func() { close(stop) }) }

	p := tea.NewProgram(
		NewTransferModel(title, total, requestStop),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	var (
		report *engine.Report
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		report, runErr = fn(ctx, stop, func(s batch.ProgressSnapshot) {
			p.Send(ProgressMsg{Snapshot: s})
		})
		p.Send(DoneMsg{Report: report, Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		requestStop()
		<-finished
		return report, errors.Join(runErr, fmt.Errorf("running progress view: %w", err))
	}
	<-finished
	return report, runErr
}
