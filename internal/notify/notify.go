package notify

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
)

// Notifier posts a desktop notification when a run took long enough that
// the user has probably looked away.
type Notifier struct {
	enabled   bool
	threshold time.Duration
	send      func(title, message string) error
}

func New(enabled bool, threshold time.Duration) *Notifier {
	return &Notifier{
		enabled:   enabled,
		threshold: threshold,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// RunFinished notifies if the run exceeded the threshold. It reports whether
// a notification was sent.
func (n *Notifier) RunFinished(success bool, suggestions int, elapsed time.Duration) (bool, error) {
	if n == nil || !n.enabled || elapsed < n.threshold {
		return false, nil
	}
	msg := fmt.Sprintf("%d suggestion(s) ready after %s", suggestions, elapsed.Truncate(time.Second))
	if !success {
		msg = "Processing failed, showing a fallback suggestion"
	}
	if err := n.send("Clarity", msg); err != nil {
		return false, fmt.Errorf("sending notification: %w", err)
	}
	return true, nil
}
