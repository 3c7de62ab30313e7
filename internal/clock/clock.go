package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock is injected wherever "today" matters so tests can pin the date.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func New() Clock { return SystemClock{} }

var Module = fx.Module("clock", fx.Provide(New))
