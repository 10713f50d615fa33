package service

import (
	"time"

	"github.com/athallaarl66/crazwash-api/internal/enum"
)

const (
	activeWindow = 30 * 24 * time.Hour
	idleWindow   = 90 * 24 * time.Hour
)

// ActivityStatus derives a customer's activity bucket from their last
// order time. It is never stored; list and detail views compute it on
// the fly. A customer with no orders is DORMANT.
func ActivityStatus(lastOrderAt time.Time, now time.Time) string {
	if lastOrderAt.IsZero() {
		return enum.ActivityDormant
	}
	since := now.Sub(lastOrderAt)
	switch {
	case since <= activeWindow:
		return enum.ActivityActive
	case since <= idleWindow:
		return enum.ActivityIdle
	default:
		return enum.ActivityDormant
	}
}
