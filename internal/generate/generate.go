// Package generate wraps the generative collaborators behind small
// interfaces so the engine can be exercised with fakes. The production
// implementations talk to the Gemini API family: text through the genai
// SDK, illustration and narration through the REST surface.
package generate

import (
	"context"

	"github.com/jonchampaigne/ScarSignal/internal/models"
)

// TurnRequest carries the bounded context for one narrative call: the
// most recent history segments, current stats and inventory, and the
// player's action text.
type TurnRequest struct {
	Recent    []models.StorySegment
	Stats     models.PlayerStats
	Inventory []models.Item
	Action    string
}

// Narrator produces the next story segment for a turn.
type Narrator interface {
	NextSegment(ctx context.Context, req TurnRequest) (*models.StorySegment, error)
}

// Illustrator renders one visual prompt into one image reference. There
// is no batching: callers issue one call per required image.
type Illustrator interface {
	Illustrate(ctx context.Context, prompt string) (string, error)
}

// Speaker synthesizes narration text into raw PCM audio (24 kHz mono,
// 16-bit little endian).
type Speaker interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
