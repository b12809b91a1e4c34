package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docextract/internal/common"
	"github.com/joseph-ayodele/docextract/internal/entity"
)

// BatchProcess analyzes files in chunks of maxConcurrent (the configured
// default when <= 0). A chunk runs concurrently and is awaited as a whole
// before the next one starts. Each file's error is captured in its outcome
// and never cancels its siblings. Outcomes are in input order.
//
// A cancelled ctx stops further chunks; the files that did not run carry the
// cancellation as their error.
func (o *Orchestrator) BatchProcess(ctx context.Context, files []entity.BatchFile, maxConcurrent int) []entity.BatchOutcome {
	if maxConcurrent <= 0 {
		maxConcurrent = o.maxConcurrent
	}
	batchID := uuid.New().String()
	start := time.Now()
	o.logger.Info("analysis.batch.start", "batch_id", batchID, "files", len(files), "max_concurrent", maxConcurrent)

	out := make([]entity.BatchOutcome, len(files))
	for lo := 0; lo < len(files); lo += maxConcurrent {
		hi := min(lo+maxConcurrent, len(files))
		if err := ctx.Err(); err != nil {
			for i := lo; i < len(files); i++ {
				out[i] = entity.BatchOutcome{FileName: files[i].FileName, Err: common.NewTransientError("batch cancelled", err)}
			}
			o.logger.Warn("analysis.batch.cancelled", "batch_id", batchID, "remaining", len(files)-lo)
			break
		}

		var g errgroup.Group
		for i := lo; i < hi; i++ {
			g.Go(func() error {
				f := files[i]
				fctx := common.WithRequestID(ctx, uuid.New().String())
				res, err := o.Analyze(fctx, f.Data, f.FileName, string(f.Type))
				out[i] = entity.BatchOutcome{FileName: f.FileName, Result: res, Err: err}
				return nil
			})
		}
		_ = g.Wait()
		o.logger.Debug("analysis.batch.chunk_done", "batch_id", batchID, "from", lo, "to", hi)
	}

	failed := 0
	for _, oc := range out {
		if oc.Err != nil {
			failed++
		}
	}
	o.logger.Info("analysis.batch.done",
		"batch_id", batchID,
		"files", len(files),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}
