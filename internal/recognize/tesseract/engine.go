// Package tesseract provides an offline recognition backend using the
// gosseract client. Output is plain OCR text for the heuristic extractor.
package tesseract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"cardscan/internal/recognize"
)

// Config for the local OCR engine.
type Config struct {
	// Languages are tesseract trained-data hints, e.g. "jpn", "eng".
	Languages []string
	// PSM is the page segmentation mode; 0 keeps the engine default.
	PSM int
}

type Engine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
	log           *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"jpn", "eng"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, clientFactory: gosseract.NewClient, log: logger}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize OCRs the image bytes with a fresh client per call.
func (e *Engine) Recognize(ctx context.Context, image []byte) (recognize.RawExtraction, error) {
	select {
	case <-ctx.Done():
		return recognize.RawExtraction{}, ctx.Err()
	default:
	}

	start := time.Now()
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return recognize.RawExtraction{}, fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.cfg.Languages...); err != nil {
		return recognize.RawExtraction{}, fmt.Errorf("set languages: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("tessedit_pageseg_mode"), strconv.Itoa(e.cfg.PSM)); err != nil {
			return recognize.RawExtraction{}, fmt.Errorf("set psm: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return recognize.RawExtraction{}, fmt.Errorf("recognize text: %w", err)
	}

	e.log.Info("tesseract.recognize.ok",
		"languages", strings.Join(e.cfg.Languages, "+"),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recognize.RawExtraction{Kind: recognize.KindText, Text: strings.TrimSpace(text)}, nil
}
