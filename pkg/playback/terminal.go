package playback

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"sync"
)

// TerminalScreen renders frames as a full background fill using 24-bit ANSI
// colors.
type TerminalScreen struct {
	in  io.Reader
	out io.Writer

	mu   sync.Mutex
	last *color.RGBA
}

func NewTerminalScreen(in io.Reader, out io.Writer) *TerminalScreen {
	return &TerminalScreen{in: in, out: out}
}

func (s *TerminalScreen) Prompt(ctx context.Context, msg string) error {
	if _, err := fmt.Fprintf(s.out, "%s\nPress enter when the show starts...", msg); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(s.in).ReadString('\n')
		if errors.Is(err, io.EOF) {
			err = nil
		}
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (s *TerminalScreen) Render(c color.RGBA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil && *s.last == c {
		return nil
	}
	// Set the background, clear the screen and move home
	if _, err := fmt.Fprintf(s.out, "\x1b[48;2;%d;%d;%dm\x1b[2J\x1b[H", c.R, c.G, c.B); err != nil {
		return err
	}
	s.last = &c
	return nil
}

// RequestFullscreen switches to the alternate screen buffer and hides the
// cursor.
func (s *TerminalScreen) RequestFullscreen() (func(), error) {
	if _, err := io.WriteString(s.out, "\x1b[?1049h\x1b[?25l"); err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			_, _ = io.WriteString(s.out, "\x1b[0m\x1b[?25h\x1b[?1049l")
		})
	}, nil
}

func (s *TerminalScreen) AcquireWakeLock() (func(), error) {
	return nil, errors.ErrUnsupported
}
