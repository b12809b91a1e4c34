package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/docintel"
)

// call runs one vendor model with retries. Errors that another attempt
// cannot fix are returned at once.
func (o *Orchestrator) call(ctx context.Context, modelID string, data []byte) (*docintel.AnalyzeResult, error) {
	reqID := common.RequestIDFromContext(ctx)
	var lastErr error
	for attempt := 1; attempt <= o.retry.MaxAttempts; attempt++ {
		res, err := o.analyzer.Analyze(ctx, modelID, data)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !common.IsRetryable(err) {
			return nil, err
		}
		if attempt == o.retry.MaxAttempts {
			break
		}

		delay := o.backoff(attempt)
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.RetryAfter > delay {
			delay = min(appErr.RetryAfter, o.retry.MaxDelay)
		}
		o.logger.Warn("analysis.vendor.retry",
			"req_id", reqID,
			"model", modelID,
			"attempt", attempt,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		o.metrics.incRetry()
		if err := sleep(ctx, delay); err != nil {
			return nil, common.NewTransientError(fmt.Sprintf("retry cancelled after %d attempts", attempt), err)
		}
	}
	return nil, common.NewTransientError(fmt.Sprintf("failed after %d attempts", o.retry.MaxAttempts), lastErr)
}

// backoff is min(BaseDelay * 2^(attempt-1), MaxDelay).
func (o *Orchestrator) backoff(attempt int) time.Duration {
	d := o.retry.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.retry.MaxDelay {
			return o.retry.MaxDelay
		}
	}
	return min(d, o.retry.MaxDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
