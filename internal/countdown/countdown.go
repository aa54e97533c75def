// Package countdown computes the time left until the festival starts and
// whether registration is still open.
package countdown

import (
	"context"
	"time"
)

// Remaining is the time left until a target, split for display.
type Remaining struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Over    bool `json:"over"`
}

// Until splits the time from now to target. Once target is reached every
// component is zero and Over is set.
func Until(now, target time.Time) Remaining {
	d := target.Sub(now)
	if d <= 0 {
		return Remaining{Over: true}
	}
	secs := int(d / time.Second)
	return Remaining{
		Days:    secs / 86400,
		Hours:   secs % 86400 / 3600,
		Minutes: secs % 3600 / 60,
		Seconds: secs % 60,
	}
}

// Open reports whether registration is open at now. A zero deadline never
// closes.
func Open(now, deadline time.Time) bool {
	return deadline.IsZero() || now.Before(deadline)
}

// Run calls fn with the remaining time immediately and then on every tick,
// returning once the target is reached or ctx is cancelled.
func Run(ctx context.Context, target time.Time, every time.Duration, fn func(Remaining)) {
	r := Until(time.Now(), target)
	fn(r)
	if r.Over {
		return
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r := Until(now, target)
			fn(r)
			if r.Over {
				return
			}
		}
	}
}
