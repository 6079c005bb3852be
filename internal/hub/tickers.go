package hub

import "time"

// TickerFactory creates the round clock. stop releases the ticker.
type TickerFactory interface {
	Create(d time.Duration) (ticks <-chan time.Time, stop func())
}

type SystemTickers struct{}

func (SystemTickers) Create(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}
