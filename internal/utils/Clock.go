package utils

import "time"

// Clock abstracts wall-clock time so schedule arithmetic stays deterministic
// in tests. Production code uses SystemClock; tests pin a MockClock to a date.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

type MockClock struct {
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}
