package progress

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"

	"github.com/trebuchet-org/treb-router/internal/usecase"
)

// SpinnerProgressReporter renders build stages with a spinner. In
// non-interactive mode every message is printed on its own line instead.
type SpinnerProgressReporter struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	spinner     *spinner.Spinner
	stages      []stageInfo
}

type stageInfo struct {
	Stage     string
	StartTime time.Time
	EndTime   time.Time
	Message   string
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter(out io.Writer, interactive bool) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = out
	s.HideCursor = false
	_ = s.Color("cyan", "bold")

	return &SpinnerProgressReporter{
		out:         out,
		interactive: interactive,
		spinner:     s,
	}
}

// OnProgress handles progress events
func (r *SpinnerProgressReporter) OnProgress(_ context.Context, event usecase.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.Stage != "" && (len(r.stages) == 0 || r.stages[len(r.stages)-1].Stage != event.Stage) {
		r.completeCurrentStage()
		r.stages = append(r.stages, stageInfo{Stage: event.Stage, StartTime: time.Now()})
	}
	if len(r.stages) > 0 && event.Message != "" {
		r.stages[len(r.stages)-1].Message = event.Message
	}

	message := event.Message
	if event.Total > 0 && event.Current > 0 {
		message = fmt.Sprintf("[%d/%d] %s", event.Current, event.Total, event.Message)
	}

	if !r.interactive {
		if message != "" {
			fmt.Fprintln(r.out, message)
		}
		return
	}

	if event.Spinner || (event.Total > 0 && event.Current < event.Total) {
		r.spinner.Suffix = " " + message
		if !r.spinner.Active() {
			r.spinner.Start()
		}
	} else if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.print(color.New(color.FgCyan), message)
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.print(color.New(color.FgRed), message)
}

func (r *SpinnerProgressReporter) print(c *color.Color, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Stop spinner temporarily
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}

	c.Fprintln(r.out, message)

	if wasActive {
		r.spinner.Start()
	}
}

// Stop halts the spinner and closes the current stage
func (r *SpinnerProgressReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner.Active() {
		r.spinner.Stop()
	}
	r.completeCurrentStage()
}

// Durations returns how long each completed stage took, in order
func (r *SpinnerProgressReporter) Durations() []StageDuration {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []StageDuration
	for _, s := range r.stages {
		if s.EndTime.IsZero() {
			continue
		}
		out = append(out, StageDuration{Stage: s.Stage, Duration: s.EndTime.Sub(s.StartTime)})
	}
	return out
}

// StageDuration is the elapsed time of one build stage
type StageDuration struct {
	Stage    string
	Duration time.Duration
}

// completeCurrentStage marks the current stage as completed. Callers hold mu.
func (r *SpinnerProgressReporter) completeCurrentStage() {
	if len(r.stages) > 0 {
		idx := len(r.stages) - 1
		if r.stages[idx].EndTime.IsZero() {
			r.stages[idx].EndTime = time.Now()
		}
	}
}

// Ensure SpinnerProgressReporter implements ProgressSink
var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
