package services

import (
	"context"
	"time"

	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

// recordCount sends a counter off the request path. A nil recorder disables metrics.
func recordCount(recorder awspkg.MetricsRecorder, name string, dims map[string]string) {
	if recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = recorder.RecordCount(ctx, name, dims)
	}()
}
