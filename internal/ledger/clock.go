package ledger

import (
	"time"

	"github.com/cleared-dev/balancebook/internal/model"
)

// Clock supplies "today" for statements whose end date defaults to the
// current day.
type Clock interface {
	Today() time.Time
}

// SystemClock reads the local calendar date.
type SystemClock struct{}

// Today implements Clock.
func (SystemClock) Today() time.Time {
	return model.Day(time.Now())
}

// FixedClock always reports the same day.
type FixedClock struct {
	Date time.Time
}

// Today implements Clock.
func (c FixedClock) Today() time.Time {
	return model.Day(c.Date)
}
