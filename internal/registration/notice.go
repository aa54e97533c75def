package registration

import (
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notifier receives the short transient messages the form shows the user
// (selection changes, the first validation error, submission failures).
type Notifier interface {
	Notify(msg string)
}

type discard struct{}

func (discard) Notify(string) {}

// Inbox buffers notices until they are drained.
type Inbox struct {
	mu      sync.Mutex
	notices []string
}

// Notify queues msg.
func (in *Inbox) Notify(msg string) {
	in.mu.Lock()
	in.notices = append(in.notices, msg)
	in.mu.Unlock()
}

// Drain returns the queued notices oldest first and empties the inbox.
func (in *Inbox) Drain() []string {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.notices
	in.notices = nil
	return out
}

var feePrinter = message.NewPrinter(language.English)

// FormatFee renders a fee in rupees with digit grouping, e.g. "₹1,000".
func FormatFee(fee int) string {
	return feePrinter.Sprintf("₹%d", fee)
}
