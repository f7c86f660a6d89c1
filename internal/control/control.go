// Package control forwards playback control intents (next, previous, pause,
// resume, stop) 1:1 to the audio backend and confirms each on the bus. It is
// deliberately thin: arbitration logic lives in the arbiter package.
package control

import (
	"github.com/chordflow/encore/internal/bus"
	"github.com/chordflow/encore/internal/errors"
	"github.com/chordflow/encore/internal/logging"
	"github.com/chordflow/encore/internal/status"
)

// Player is the slice of the audio playback backend the controller needs.
// The real transport and transcoding live outside this module.
type Player interface {
	Next() error
	Prev() error
	Pause() error
	Resume() error
	Stop() error
	IsPlaying() bool
	TrackInfo() map[string]string
}

// Controller drives the player on behalf of control intents and publishes a
// confirmation event for each performed action.
type Controller struct {
	player  Player
	bus     *bus.Bus
	tracker *status.Tracker
	log     *logging.Logger
}

// NewController creates a Controller.
func NewController(player Player, b *bus.Bus, tracker *status.Tracker, log *logging.Logger) (*Controller, error) {
	if player == nil {
		return nil, errors.New("control: Player is required")
	}
	if b == nil {
		return nil, errors.New("control: Bus is required")
	}
	if log == nil {
		log = logging.Nop()
	}

	return &Controller{
		player:  player,
		bus:     b,
		tracker: tracker,
		log:     log.WithComponent("control"),
	}, nil
}

// Next skips to the next track and confirms.
func (c *Controller) Next() error {
	return c.forward(bus.ControlNext, c.player.Next)
}

// Prev returns to the previous track and confirms.
func (c *Controller) Prev() error {
	return c.forward(bus.ControlPrev, c.player.Prev)
}

// Pause pauses playback and confirms.
func (c *Controller) Pause() error {
	return c.forward(bus.ControlPause, c.player.Pause)
}

// Resume resumes paused playback and confirms. Also used by the
// conversational resume shortcut.
func (c *Controller) Resume() error {
	return c.forward(bus.ControlResume, c.player.Resume)
}

// forward drives the player and publishes the confirmation on success.
func (c *Controller) forward(action bus.ControlAction, fn func() error) error {
	if err := fn(); err != nil {
		c.log.Warn("player action failed", "action", string(action), "error", err.Error())
		return err
	}
	c.bus.Publish(bus.NewControlEvent(action))
	return nil
}

// Stop halts playback and clears the presentation state. It returns true if
// something was actually playing, so the host can decide whether the stop
// intent was consumed here.
func (c *Controller) Stop() (bool, error) {
	if c.tracker != nil {
		c.tracker.Clear()
	}

	c.log.Info("audio service status", "track_info", c.player.TrackInfo())

	if !c.player.IsPlaying() {
		return false, nil
	}

	if err := c.player.Stop(); err != nil {
		return false, err
	}
	c.bus.Publish(bus.NewControlEvent(bus.ControlStop))
	return true, nil
}
