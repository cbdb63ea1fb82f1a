package catalog

import (
	"context"
	"time"
)

// pacer serializes calls and keeps at least gap between the end of one and
// the start of the next. One pacer is shared by every turn using a Verifier.
type pacer struct {
	gap  time.Duration
	slot chan struct{}
	last time.Time
}

func newPacer(gap time.Duration) *pacer {
	p := &pacer{gap: gap, slot: make(chan struct{}, 1)}
	p.slot <- struct{}{}
	return p
}

// do runs fn in its turn. Waiting for the turn or the gap honors ctx.
func (p *pacer) do(ctx context.Context, fn func() error) error {
	select {
	case <-p.slot:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() {
		p.last = time.Now()
		p.slot <- struct{}{}
	}()

	if wait := p.gap - time.Since(p.last); !p.last.IsZero() && wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return fn()
}
