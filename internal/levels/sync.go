package levels

import (
	"context"

	"go.uber.org/zap"
)

// Upserter stores levels.
type Upserter interface {
	Upsert(ctx context.Context, l Level) (bool, error)
}

// Sync writes every level to dst and returns how many changed. It stops at
// the first failure.
func Sync(ctx context.Context, dst Upserter, ls []Level, log *zap.Logger) (int, error) {
	if log == nil {
		log = zap.NewNop()
	}
	changed := 0
	for _, l := range ls {
		ok, err := dst.Upsert(ctx, l)
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
			log.Info("level updated", zap.String("slug", l.Slug), zap.String("fingerprint", l.Fingerprint))
		}
	}
	return changed, nil
}
