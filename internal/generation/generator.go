package generation

import (
	"context"
)

// Generator defines the interface for producing a research artifact from a
// topic. This interface serves as a boundary between the application core
// and the external content-generation provider.
type Generator interface {
	// Research produces the artifact body for the given topic.
	// The returned string is the artifact's markdown content.
	// Implementations perform no internal retry; transient provider
	// failures surface to the caller and the work queue's redelivery
	// supplies the retry.
	Research(ctx context.Context, topic string) (string, error)
}
