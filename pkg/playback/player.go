package playback

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log"
	"time"
)

type State int

const (
	Idle State = iota
	ArmedWarning
	Playing
	Finished
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArmedWarning:
		return "armed"
	case Playing:
		return "playing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const warning = "Turn your screen brightness up and hold your device facing the stage."

// Screen is where frames are rendered. Fullscreen and wake lock are best
// effort, implementations return errors.ErrUnsupported when they lack them.
type Screen interface {
	// Prompt shows the message and blocks until the user confirms.
	Prompt(ctx context.Context, msg string) error
	Render(c color.RGBA) error
	RequestFullscreen() (release func(), err error)
	AcquireWakeLock() (release func(), err error)
}

type Player struct {
	track    *Track
	screen   Screen
	debug    bool
	state    State
	t0       time.Time
	releases []func()
}

func NewPlayer(track *Track, screen Screen, debug bool) *Player {
	return &Player{
		track:  track,
		screen: screen,
		debug:  debug,
	}
}

func (p *Player) State() State {
	return p.state
}

// Arm moves the player to the warning state, playback can only be started
// from there.
func (p *Player) Arm() error {
	if p.state != Idle {
		return fmt.Errorf("playback: can't arm while %s", p.state)
	}
	p.state = ArmedWarning
	return nil
}

// Start records the start time and acquires the screen resources.
func (p *Player) Start(now time.Time) error {
	if p.state != ArmedWarning {
		return fmt.Errorf("playback: can't start while %s", p.state)
	}
	p.t0 = now
	p.state = Playing
	p.acquire("fullscreen", p.screen.RequestFullscreen)
	p.acquire("wake lock", p.screen.AcquireWakeLock)
	return nil
}

func (p *Player) acquire(name string, fn func() (func(), error)) {
	release, err := fn()
	switch {
	case errors.Is(err, errors.ErrUnsupported):
		if p.debug {
			log.Printf("playback: %s not supported\n", name)
		}
	case err != nil:
		log.Printf("playback: couldn't acquire %s: %v\n", name, err)
	case release != nil:
		p.releases = append(p.releases, release)
	}
}

func (p *Player) release() {
	// Reverse order of acquisition
	for i := len(p.releases) - 1; i >= 0; i-- {
		p.releases[i]()
	}
	p.releases = nil
}

// Frame renders the frame at the given instant. The player moves to
// finished after the last block ends.
func (p *Player) Frame(now time.Time) (Frame, error) {
	if p.state != Playing {
		return Frame{}, fmt.Errorf("playback: can't render while %s", p.state)
	}
	f := ComputeFrame(now.Sub(p.t0), now, p.track)
	if err := p.screen.Render(f.Color); err != nil {
		return f, fmt.Errorf("playback: couldn't render: %w", err)
	}
	if f.Finished {
		p.state = Finished
		p.release()
	}
	return f, nil
}

// Exit stops playback and releases the screen resources. It can be called
// any number of times.
func (p *Player) Exit() {
	p.release()
	if p.state != Finished {
		p.state = Idle
	}
}

// Run arms the player, waits for confirmation and renders a frame for each
// tick until the track finishes or the context is done.
func (p *Player) Run(ctx context.Context, frames <-chan time.Time) error {
	defer p.Exit()
	if err := p.Arm(); err != nil {
		return err
	}
	if err := p.screen.Prompt(ctx, warning); err != nil {
		return fmt.Errorf("playback: prompt: %w", err)
	}
	if err := p.Start(time.Now()); err != nil {
		return err
	}
	log.Printf("playback: playing %s (%s)\n", p.track.SongID, p.track.Duration())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-frames:
			if !ok {
				return nil
			}
			f, err := p.Frame(now)
			if err != nil {
				return err
			}
			if f.Finished {
				log.Println("playback: finished")
				return nil
			}
		}
	}
}
