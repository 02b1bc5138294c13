package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"arbradar/internal/application/port"
)

// Sink writes the radar to one terminal: a live line redrawn in place and
// cycle blocks appended between blank lines. All calls come from the radar
// loop goroutine.
type Sink struct {
	w    io.Writer
	live bool // a live line is on screen without a trailing newline
}

func NewSink() port.Sink { return &Sink{w: os.Stdout} }

func (s *Sink) WriteLive(line string) error {
	fmt.Fprint(s.w, line) // carriage return and clear come from the formatter
	s.live = true
	return nil
}

// WriteBlock terminates any pending live line, then prints the block padded
// with blank lines. The block carries its own timestamp header.
func (s *Sink) WriteBlock(ts time.Time, block string) error {
	if s.live {
		fmt.Fprint(s.w, "\n")
		s.live = false
	}
	fmt.Fprint(s.w, "\n")
	fmt.Fprint(s.w, block)
	if !strings.HasSuffix(block, "\n") {
		fmt.Fprint(s.w, "\n")
	}
	fmt.Fprint(s.w, "\n")
	return nil
}

func (s *Sink) NewLine() error {
	fmt.Fprint(s.w, "\n")
	s.live = false
	return nil
}
