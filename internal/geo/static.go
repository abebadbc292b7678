package geo

import (
	"context"
	"sync"
	"time"
)

// StaticSource reports a fixed position after a delay. A source built with
// NoSignal never produces a fix.
type StaticSource struct {
	fix   Fix
	has   bool
	delay time.Duration
}

func NewStaticSource(fix Fix, delay time.Duration) *StaticSource {
	return &StaticSource{fix: fix, has: true, delay: delay}
}

// NoSignal returns a source that subscribes successfully but stays silent.
func NoSignal() *StaticSource {
	return &StaticSource{}
}

func (s *StaticSource) Subscribe(ctx context.Context) (<-chan Reading, func(), error) {
	ch := make(chan Reading, 1)
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
			if s.has {
				ch <- Reading{Fix: s.fix}
			}
		case <-done:
		case <-ctx.Done():
		}
	}()

	stop := sync.OnceFunc(func() {
		close(done)
		wg.Wait()
	})
	return ch, stop, nil
}

func (s *StaticSource) LastKnown(context.Context) (Fix, error) {
	if !s.has {
		return Fix{}, ErrUnavailable
	}
	return s.fix, nil
}
