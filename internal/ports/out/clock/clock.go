package clock

import "time"

// Clock stamps registrations and decisions and picks the member number year.
// Tests drive it with a manual implementation.
type Clock interface {
	Now() time.Time
}
