package clock

import (
	"time"

	clockport "github.com/alubilles/membership-api/internal/ports/out/clock"
)

// SystemClock reads the wall clock in UTC, truncated to microseconds so
// timestamps survive a Postgres round trip unchanged.
type SystemClock struct{}

var _ clockport.Clock = SystemClock{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
