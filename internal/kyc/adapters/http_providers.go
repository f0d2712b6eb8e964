package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"onekyc/internal/kyc/dedupe"
	"onekyc/internal/kyc/liveness"
	"onekyc/internal/kyc/models"
	"onekyc/internal/kyc/ports"
	"onekyc/pkg/platform/sentinel"
)

// maxResponseBytes bounds provider responses.
const maxResponseBytes = 1 << 20

// httpProvider POSTs raw image bytes to a provider endpoint and decodes a
// JSON response. Timeouts come from the caller's context.
type httpProvider struct {
	url    string
	client *http.Client
}

func newHTTPProvider(url string, client *http.Client) httpProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return httpProvider{url: url, client: client}
}

func (p httpProvider) post(ctx context.Context, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: provider request: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fmt.Errorf("%w: provider returned %s", sentinel.ErrUnavailable, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

// HTTPExtractor calls an OCR service that answers with the extracted fields.
type HTTPExtractor struct {
	httpProvider
}

func NewHTTPExtractor(url string, client *http.Client) ports.Extractor {
	return &HTTPExtractor{newHTTPProvider(url, client)}
}

func (e *HTTPExtractor) Extract(ctx context.Context, document []byte) (models.ExtractedFields, error) {
	var fields models.ExtractedFields
	if err := e.post(ctx, document, &fields); err != nil {
		return models.ExtractedFields{}, err
	}
	return fields, nil
}

// HTTPBiometric calls a face embedding service. Matching is local cosine
// similarity over the returned embeddings.
type HTTPBiometric struct {
	httpProvider
}

func NewHTTPBiometric(url string, client *http.Client) ports.Biometric {
	return &HTTPBiometric{newHTTPProvider(url, client)}
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns an empty embedding when the service finds no face.
func (b *HTTPBiometric) Embed(ctx context.Context, image []byte) ([]float64, error) {
	var resp embedResponse
	if err := b.post(ctx, image, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

func (b *HTTPBiometric) MatchScore(a, c []float64) float64 {
	return dedupe.Cosine(a, c)
}

// HTTPLandmarks calls a face landmark service.
type HTTPLandmarks struct {
	httpProvider
}

func NewHTTPLandmarks(url string, client *http.Client) ports.LandmarkDetector {
	return &HTTPLandmarks{newHTTPProvider(url, client)}
}

type landmarksResponse struct {
	FaceDetected bool          `json:"face_detected"`
	Left         [6][2]float64 `json:"left_eye"`
	Right        [6][2]float64 `json:"right_eye"`
}

func (l *HTTPLandmarks) DetectEyes(ctx context.Context, frame []byte) (*liveness.EyeLandmarks, error) {
	var resp landmarksResponse
	if err := l.post(ctx, frame, &resp); err != nil {
		return nil, err
	}
	if !resp.FaceDetected {
		return nil, nil
	}
	return &liveness.EyeLandmarks{Left: toEye(resp.Left), Right: toEye(resp.Right)}, nil
}

func toEye(pts [6][2]float64) liveness.Eye {
	var e liveness.Eye
	for i, p := range pts {
		e[i] = liveness.Point{X: p[0], Y: p[1]}
	}
	return e
}

// HTTPQuality calls an image quality service.
type HTTPQuality struct {
	httpProvider
}

func NewHTTPQuality(url string, client *http.Client) ports.QualityScorer {
	return &HTTPQuality{newHTTPProvider(url, client)}
}

type qualityResponse struct {
	Score float64 `json:"score"`
}

func (q *HTTPQuality) Score(ctx context.Context, image []byte) (float64, error) {
	var resp qualityResponse
	if err := q.post(ctx, image, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}
