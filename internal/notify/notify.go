// Package notify sends desktop notifications after a provider changes
// hardware state.
package notify

import (
	"context"
	"strconv"
	"time"

	"codeberg.org/mutker/bard/internal/command"
	"codeberg.org/mutker/bard/internal/errors"
	"codeberg.org/mutker/bard/internal/logger"
)

// Notification is one desktop notification. Value, when set, is drawn as a
// progress bar by the notification daemon.
type Notification struct {
	Summary string
	Icon    string
	Value   *int
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dunst sends notifications with dunstify. Every notification reuses the
// same id so a new one replaces the one currently on screen.
type Dunst struct {
	runner  command.Runner
	id      int
	timeout time.Duration
}

func NewDunst(runner command.Runner, id int, timeout time.Duration) *Dunst {
	return &Dunst{
		runner:  runner,
		id:      id,
		timeout: timeout,
	}
}

func (d *Dunst) Notify(ctx context.Context, n Notification) error {
	args := []string{
		"-u", "normal",
		"-r", strconv.Itoa(d.id),
		"-t", strconv.FormatInt(d.timeout.Milliseconds(), 10),
		"-i", n.Icon,
	}
	if n.Value != nil {
		args = append(args, "-h", "int:value:"+strconv.Itoa(*n.Value))
	}
	args = append(args, n.Summary)

	if _, err := d.runner.Run(ctx, "dunstify", args...); err != nil {
		return errors.New().Wrap(errors.ErrCommandFailed, err)
	}

	logger.Debug().Str("summary", n.Summary).Str("icon", n.Icon).Msg("Notification sent")

	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Notification) error { return nil }

// IntValue is a convenience for Notification.Value.
func IntValue(v int) *int {
	return &v
}
