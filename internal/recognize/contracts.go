package recognize

import "context"

// Kind tags the wire shape a backend produces, which decides the extractor
// variant downstream.
type Kind string

const (
	// KindText is raw multi-line OCR text for the heuristic extractor.
	KindText Kind = "text"
	// KindStructured is model output carrying a JSON contact object.
	KindStructured Kind = "structured"
)

// RawExtraction is the opaque result of one recognition call.
type RawExtraction struct {
	Kind Kind
	// Text is the full recognized payload: OCR text for KindText, the
	// candidate's text content for KindStructured.
	Text string
}

// Recognizer is the remote (or local) image-understanding capability:
// one image in, one raw extraction out.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (RawExtraction, error)
}
