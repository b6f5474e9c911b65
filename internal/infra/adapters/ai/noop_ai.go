package ai

import (
	"context"
	"log"
	"time"

	"quickvision/internal/domain/ports/adapter"
)

var _ adapter.VisionAdapter = (*NoopVisionAdapter)(nil)

// NoopVisionAdapter implements adapter.VisionAdapter for local/dev testing.
// It logs the call instead of hitting a real provider.
type NoopVisionAdapter struct{}

func NewNoopVisionAdapter() *NoopVisionAdapter {
	return &NoopVisionAdapter{}
}

func (a *NoopVisionAdapter) Name() string { return "noop" }

func (a *NoopVisionAdapter) Describe(ctx context.Context, instruction string, imagePNG []byte) (string, error) {
	select {
	case <-time.After(100 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	log.Printf("[noop-vision] %d image bytes, instruction %q\n", len(imagePNG), instruction)
	return "1) A\n2) B", nil
}
