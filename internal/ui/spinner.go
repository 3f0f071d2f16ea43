package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner displays an animated progress indicator on stderr. When stderr is
// not a terminal it stays silent so piped output is not polluted.
type Spinner struct {
	mu      sync.Mutex
	msg     string
	done    chan struct{}
	out     io.Writer
	enabled bool
}

// NewSpinner creates a new Spinner (not yet running).
func NewSpinner() *Spinner {
	return &Spinner{out: os.Stderr, enabled: term.IsTerminal(int(os.Stderr.Fd()))}
}

// NewSpinnerTo creates a Spinner drawing on w regardless of TTY state.
func NewSpinnerTo(w io.Writer) *Spinner {
	return &Spinner{out: w, enabled: true}
}

// Start begins the spinner animation with the given message.
func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = msg
	if !s.enabled || s.done != nil {
		return
	}
	s.done = make(chan struct{})
	go s.run(s.done)
}

// Update changes the spinner message while it's running.
func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Stop halts the spinner and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	close(s.done)
	s.done = nil
	fmt.Fprintf(s.out, "\r\033[K")
}

func (s *Spinner) run(done <-chan struct{}) {
	tick := time.NewTicker(80 * time.Millisecond)
	defer tick.Stop()

	i := 0
	for {
		select {
		case <-done:
			return
		case <-tick.C:
			s.mu.Lock()
			select {
			case <-done:
				s.mu.Unlock()
				return
			default:
			}
			fmt.Fprintf(s.out, "\r\033[K%c %s", frames[i%len(frames)], s.msg)
			s.mu.Unlock()
			i++
		}
	}
}
