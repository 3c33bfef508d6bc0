package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/matzehuels/packmesh/pkg/observability"
)

// spinner animates a status line while a build runs. It also implements
// observability.StageHooks, so the line follows the build stages.
type spinner struct {
	w       io.Writer
	frames  []string
	done    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	message string
	width   int // widest line written, for clearing
}

func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start animates until stop is called or ctx is cancelled.
func (s *spinner) start(ctx context.Context) {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				line := styleIconSpinner.Render(s.frames[i%len(s.frames)]) + " " + StyleDim.Render(s.message)
				s.width = max(s.width, len(s.message)+4)
				fmt.Fprintf(s.w, "\r%s", line)
				s.mu.Unlock()
			}
		}
	}()
}

func (s *spinner) setMessage(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = msg
}

// stop ends the animation and clears the line. It is safe to call twice.
func (s *spinner) stop() {
	s.mu.Lock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	s.mu.Unlock()
	<-s.stopped
	s.clearLine()
}

func (s *spinner) stopWithError(message string) {
	s.stop()
	printError("%s", message)
}

func (s *spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
	}
}

func (s *spinner) OnStackStart(_ context.Context, method string, beads int) {
	s.setMessage(fmt.Sprintf("Stacking %d beads by %s...", beads, method))
}

func (s *spinner) OnStackComplete(_ context.Context, _ string, ghosts int, _ time.Duration, err error) {
	if err == nil {
		s.setMessage(fmt.Sprintf("Fragmenting with %d ghosts...", ghosts))
	}
}

func (s *spinner) OnFragmentComplete(_ context.Context, section string, volumes int, _ time.Duration, err error) {
	if err == nil {
		s.setMessage(fmt.Sprintf("Classifying %d volumes of the %s...", volumes, section))
	}
}

func (s *spinner) OnPairComplete(_ context.Context, section string, pairs int, err error) {
	if err == nil {
		s.setMessage(fmt.Sprintf("Paired %d surfaces of the %s...", pairs, section))
	}
}

var _ observability.StageHooks = (*spinner)(nil)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// withSpinner runs fn with a spinner on the CLI's error stream. Nothing is
// drawn unless that stream is a terminal.
func (c *CLI) withSpinner(ctx context.Context, message, failure string, fn func() error) error {
	if !isTerminal(c.stderr) {
		return fn()
	}
	return runWithSpinner(ctx, newSpinner(c.stderr, message), failure, fn)
}

func runWithSpinner(ctx context.Context, s *spinner, failure string, fn func() error) error {
	prev := observability.Stage()
	observability.SetStageHooks(s)
	defer observability.SetStageHooks(prev)

	s.start(ctx)
	if err := fn(); err != nil {
		s.stopWithError(failure)
		return err
	}
	s.stop()
	return nil
}
