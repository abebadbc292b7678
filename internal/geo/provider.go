package geo

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Reading is one delivery from a Source: either a fix or an error.
type Reading struct {
	Fix Fix
	Err error
}

// Source is a platform positioning source.
//
// Subscribe starts delivering readings on the returned channel. The stop
// function releases the underlying subscription; it is idempotent and does
// not return until the source has stopped producing. The channel may be
// closed by the source when it runs out of data.
//
// LastKnown returns the most recent fix the source recorded without waiting.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Reading, func(), error)
	LastKnown(ctx context.Context) (Fix, error)
}

// Provider turns a Source into the two operations the capture cycle needs:
// a single fix bounded by a timeout and a best-effort last known fix.
// Every failure mode degrades to "no fix".
type Provider struct {
	source Source
	logger *slog.Logger
	now    func() time.Time
}

// NewProvider wraps source. A nil source always yields no fix. Pass nil
// logger for default.
func NewProvider(source Source, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		source: source,
		logger: logger.With("component", "location"),
		now:    time.Now,
	}
}

// BoundedFix waits for the first valid fix, at most timeout. The source
// subscription is released before BoundedFix returns.
func (p *Provider) BoundedFix(ctx context.Context, timeout time.Duration) (Fix, bool) {
	if p == nil || p.source == nil || timeout <= 0 {
		return Fix{}, false
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	readings, stop, err := p.source.Subscribe(waitCtx)
	if err != nil {
		p.logSourceError("subscribe failed", err)
		return Fix{}, false
	}
	defer stop()

	for {
		select {
		case r, ok := <-readings:
			if !ok {
				p.logger.Debug("location source closed without a fix")
				return Fix{}, false
			}
			if r.Err != nil {
				p.logSourceError("location reading failed", r.Err)
				return Fix{}, false
			}
			if !r.Fix.Valid() {
				p.logger.Debug("discarding invalid fix", "fix", r.Fix.String())
				continue
			}
			if r.Fix.At.IsZero() {
				r.Fix.At = p.now()
			}
			return r.Fix, true
		case <-waitCtx.Done():
			if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
				p.logger.Info("location wait timed out", "timeout", timeout)
			}
			return Fix{}, false
		}
	}
}

// LastKnownFix returns whatever the source last recorded, without waiting.
func (p *Provider) LastKnownFix(ctx context.Context) (Fix, bool) {
	if p == nil || p.source == nil {
		return Fix{}, false
	}
	fix, err := p.source.LastKnown(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			p.logSourceError("last known fix failed", err)
		}
		return Fix{}, false
	}
	if !fix.Valid() {
		return Fix{}, false
	}
	return fix, true
}

func (p *Provider) logSourceError(msg string, err error) {
	if errors.Is(err, ErrPermissionDenied) {
		p.logger.Warn(msg, "error", err)
		return
	}
	p.logger.Debug(msg, "error", err)
}
