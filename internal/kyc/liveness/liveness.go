// Package liveness turns eye landmarks from a biometric capture into a
// liveness verdict using the eye aspect ratio (EAR).
//
// This is pure domain logic. Landmark detection is an external concern; a nil
// *EyeLandmarks means the detector found no face in the frame.
package liveness

import (
	"math"

	"onekyc/internal/kyc/models"
)

const (
	// ClosedThreshold is the EAR below which eyes count as closed.
	ClosedThreshold = 0.25
	// OpenThreshold is the EAR a frame must exceed to be kept as the still image.
	OpenThreshold = 0.30
	// MaxFrames bounds how many video frames are analysed.
	MaxFrames = 30

	imageConfidenceClosed   = 0.9
	imageConfidenceOpen     = 0.7
	blinksForFullConfidence = 2.0
)

// Point is a landmark coordinate in pixels.
type Point struct {
	X, Y float64
}

// Eye is the six boundary points of one eye, p0 and p3 being the corners.
type Eye [6]Point

// EyeLandmarks is the detector output for one face.
type EyeLandmarks struct {
	Left  Eye
	Right Eye
}

// EAR computes (|p1-p5| + |p2-p4|) / (2|p0-p3|). A degenerate eye with no
// horizontal extent yields 0.
func EAR(e Eye) float64 {
	h := dist(e[0], e[3])
	if h == 0 {
		return 0
	}
	return (dist(e[1], e[5]) + dist(e[2], e[4])) / (2 * h)
}

// FrameEAR averages both eyes.
func FrameEAR(l EyeLandmarks) float64 {
	return (EAR(l.Left) + EAR(l.Right)) / 2
}

// ImageResult is the verdict for a single still frame.
type ImageResult struct {
	FaceDetected   bool
	BlinkDetected  bool
	EyeAspectRatio float64
	Confidence     float64
}

// AssessImage classifies one frame.
func AssessImage(l *EyeLandmarks) ImageResult {
	if l == nil {
		return ImageResult{}
	}
	ear := FrameEAR(*l)
	closed := ear < ClosedThreshold
	conf := imageConfidenceOpen
	if closed {
		conf = imageConfidenceClosed
	}
	return ImageResult{
		FaceDetected:   true,
		BlinkDetected:  closed,
		EyeAspectRatio: ear,
		Confidence:     conf,
	}
}

// AssessStill wraps AssessImage into the result stored on a selfie.
// A still can not prove liveness, so IsLive stays false.
func AssessStill(l *EyeLandmarks) models.LivenessResult {
	img := AssessImage(l)
	best := -1
	if img.FaceDetected && !img.BlinkDetected && img.EyeAspectRatio > OpenThreshold {
		best = 0
	}
	return models.LivenessResult{
		FaceDetected:   img.FaceDetected,
		BlinkDetected:  img.BlinkDetected,
		EyeAspectRatio: img.EyeAspectRatio,
		Confidence:     img.Confidence,
		FramesAnalyzed: 1,
		BestFrameIndex: best,
	}
}

// AssessVideo scans at most maxFrames frames (MaxFrames when maxFrames is
// not positive or larger) and counts blinks as open to closed transitions.
// Frames without a face break a closed run.
func AssessVideo(frames []*EyeLandmarks, maxFrames int) models.LivenessResult {
	budget := MaxFrames
	if maxFrames > 0 && maxFrames < budget {
		budget = maxFrames
	}
	if len(frames) > budget {
		frames = frames[:budget]
	}

	res := models.LivenessResult{Video: true, BestFrameIndex: -1, FramesAnalyzed: len(frames)}
	wasClosed := false
	bestEAR := 0.0
	for i, f := range frames {
		img := AssessImage(f)
		if !img.FaceDetected {
			wasClosed = false
			continue
		}
		res.FaceDetected = true
		if img.BlinkDetected {
			if !wasClosed {
				res.BlinkCount++
			}
			wasClosed = true
			continue
		}
		wasClosed = false
		if img.EyeAspectRatio > OpenThreshold && img.EyeAspectRatio > bestEAR {
			bestEAR = img.EyeAspectRatio
			res.BestFrameIndex = i
		}
	}

	res.BlinkDetected = res.BlinkCount > 0
	res.IsLive = res.BlinkCount >= 1
	res.Confidence = math.Min(1, float64(res.BlinkCount)/blinksForFullConfidence)
	res.EyeAspectRatio = bestEAR
	return res
}

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
