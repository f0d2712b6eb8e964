package ports

import (
	"context"

	"onekyc/internal/kyc/liveness"
	"onekyc/internal/kyc/models"
)

// Extractor reads fields off a document image. Implementations wrap an OCR
// provider; the engine never depends on a specific one.
type Extractor interface {
	Extract(ctx context.Context, document []byte) (models.ExtractedFields, error)
}

// Biometric produces face embeddings and compares them.
type Biometric interface {
	Embed(ctx context.Context, image []byte) ([]float64, error)
	// MatchScore returns a similarity in [0, 1].
	MatchScore(a, b []float64) float64
}

// LandmarkDetector locates eye landmarks in a frame. It returns nil landmarks
// and no error when no face is present.
type LandmarkDetector interface {
	DetectEyes(ctx context.Context, frame []byte) (*liveness.EyeLandmarks, error)
}

// QualityScorer rates a document image in [0, 1].
type QualityScorer interface {
	Score(ctx context.Context, image []byte) (float64, error)
}
