package trades

import (
	"context"
	"time"

	"tradelens/internal/logger"
)

// Source supplies a complete batch of trade records in load order.
type Source interface {
	Load(ctx context.Context) ([]TradeRecord, error)
	// Describe names the source for logs and error messages.
	Describe() string
}

// Load reads the whole batch from src. Any failure is returned as a *LoadError;
// a partial batch is never returned.
func Load(ctx context.Context, src Source) ([]TradeRecord, error) {
	if src == nil {
		return nil, &LoadError{Err: ErrSourceMissing}
	}
	start := time.Now()
	records, err := src.Load(ctx)
	if err != nil {
		if !IsLoadError(err) {
			err = &LoadError{Source: src.Describe(), Err: err}
		}
		logger.Errorf("[trades] load failed source=%s err=%v", src.Describe(), err)
		return nil, err
	}
	logger.Infof("[trades] loaded %d records from %s in %s", len(records), src.Describe(), time.Since(start).Round(time.Millisecond))
	return records, nil
}
