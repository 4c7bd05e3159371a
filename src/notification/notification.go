// Package notification posts macOS user notifications for resident feedback.
package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"get-selected-text/src/osascript"
)

const (
	DefaultTitle = "Get Selected Text"
	maxBody      = 200
	postTimeout  = 2 * time.Second
)

// Notifier shows notifications through an AppleScript runner.
type Notifier struct {
	runner osascript.Runner
	title  string
}

func New(runner osascript.Runner) *Notifier {
	return &Notifier{runner: runner, title: DefaultTitle}
}

// Show posts message asynchronously. Failures are only logged.
func (n *Notifier) Show(message string) {
	if n == nil || n.runner == nil {
		return
	}
	go func() {
		if err := n.Post(context.Background(), message); err != nil {
			log.Printf("notification: %v", err)
		}
	}()
}

// Post runs the notification script and waits for it.
func (n *Notifier) Post(ctx context.Context, message string) error {
	ctx, cancel := context.WithTimeout(ctx, postTimeout)
	defer cancel()
	if _, err := n.runner.Run(ctx, Script(n.title, message)); err != nil {
		return fmt.Errorf("display notification failed: %w", err)
	}
	return nil
}

// Script builds the AppleScript that displays message under title.
func Script(title, message string) string {
	if len(message) > maxBody {
		message = truncate(message, maxBody) + "..."
	}
	return fmt.Sprintf("display notification %s with title %s", quote(message), quote(title))
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func truncate(s string, n int) string {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
