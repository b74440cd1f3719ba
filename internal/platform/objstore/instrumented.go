// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package objstore

import (
	"context"
	"time"

	"github.com/taibuivan/vidora/internal/platform/metrics"
)

// Instrumented decorates a [Storage] with upload/delete metrics.
type Instrumented struct {
	next    Storage
	metrics *metrics.Metrics
}

// NewInstrumented wraps next. A nil metrics instance disables recording.
func NewInstrumented(next Storage, metrics *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

// Upload delegates and records outcome and duration.
func (storage *Instrumented) Upload(ctx context.Context, localPath string) (Object, error) {
	start := time.Now()
	object, err := storage.next.Upload(ctx, localPath)
	storage.metrics.RecordUpload(outcome(err), time.Since(start))
	return object, err
}

// Delete delegates and records the outcome.
func (storage *Instrumented) Delete(ctx context.Context, storageID string) error {
	err := storage.next.Delete(ctx, storageID)
	storage.metrics.RecordDelete(outcome(err))
	return err
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeFailure
	}
	return metrics.OutcomeSuccess
}
