package sqlite

import "time"

// SystemClock implements ports.Clock at the millisecond precision the store
// persists, so a value read back equals the value written.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
