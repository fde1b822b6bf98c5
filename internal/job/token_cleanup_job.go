package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/waflow/accountd/internal/pkg/timeutil"
	"github.com/waflow/accountd/internal/repo"
)

// TokenCleanupJob nulls out verification and reset token columns whose
// expiry has passed. Matching queries already exclude expired tokens, so
// this is housekeeping only and runs only when a cron spec is configured.
type TokenCleanupJob struct {
	accounts *repo.AccountRepo
}

func NewTokenCleanupJob(accounts *repo.AccountRepo) *TokenCleanupJob {
	return &TokenCleanupJob{accounts: accounts}
}

func (j *TokenCleanupJob) Name() string {
	return "token_cleanup"
}

func (j *TokenCleanupJob) Run(ctx context.Context) error {
	purged, err := j.accounts.PurgeExpiredTokens(ctx, timeutil.NowUnix())
	if err != nil {
		return err
	}
	if purged > 0 {
		logutil.GetLogger(ctx).Info("purged expired tokens", zap.Int64("count", purged))
	}
	return nil
}
