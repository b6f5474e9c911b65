package adapter

import "context"

// VisionAdapter is the port for the external vision-inference collaborator.
// Describe sends one image plus the fixed system instruction and returns the
// model's free-form text. Implementations must honor ctx cancellation and
// bound the call with their own hard timeout.
type VisionAdapter interface {
	Name() string
	Describe(ctx context.Context, instruction string, imagePNG []byte) (string, error)
}
