package ai

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"quickvision/internal/domain/ports/adapter"
	"quickvision/internal/infra/metrics"
)

var _ adapter.VisionAdapter = (*MultiVisionAdapter)(nil)

// MultiVisionAdapter tries providers in order and returns the first answer.
// A provider error is logged and the next one is tried; only when every
// provider fails does the caller see the last error.
type MultiVisionAdapter struct {
	providers []adapter.VisionAdapter
	log       *zerolog.Logger
}

func NewMultiVisionAdapter(logger *zerolog.Logger, providers ...adapter.VisionAdapter) *MultiVisionAdapter {
	l := logger.With().Str("component", "MultiVision").Logger()
	return &MultiVisionAdapter{providers: providers, log: &l}
}

func (m *MultiVisionAdapter) Name() string {
	names := make([]string, 0, len(m.providers))
	for _, p := range m.providers {
		names = append(names, p.Name())
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *MultiVisionAdapter) Describe(ctx context.Context, instruction string, imagePNG []byte) (string, error) {
	var lastErr error
	for _, p := range m.providers {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		start := time.Now()
		text, err := p.Describe(ctx, instruction, imagePNG)
		metrics.ObserveCapture(p.Name(), time.Since(start).Milliseconds(), err == nil)
		if err == nil {
			return text, nil
		}
		lastErr = err
		m.log.Warn().Err(err).Str("provider", p.Name()).Msg("provider failed, trying next")
	}
	return "", lastErr
}
