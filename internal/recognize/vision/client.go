// Package vision calls the Cloud Vision images:annotate endpoint and yields
// raw OCR text for the heuristic extractor.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/common"
	"cardscan/internal/recognize"
)

// Config for the Vision OCR client.
type Config struct {
	APIKey  string        // if empty, falls back to env VISION_API_KEY
	BaseURL string        // default https://vision.googleapis.com/v1
	Timeout time.Duration // http client timeout
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("VISION_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://vision.googleapis.com/v1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

func (c *Client) Name() string { return "vision" }

// Recognize runs TEXT_DETECTION and returns the full-text annotation
// (responses[0].textAnnotations[0].description).
func (c *Client) Recognize(ctx context.Context, image []byte) (recognize.RawExtraction, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("vision.recognize.start", "req_id", rid, "image_bytes", len(image))

	body := map[string]any{
		"requests": []map[string]any{{
			"image":    map[string]any{"content": base64.StdEncoding.EncodeToString(image)},
			"features": []map[string]any{{"type": "TEXT_DETECTION"}},
		}},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/images:annotate?key=" + c.cfg.APIKey
	raw, status, err := recognize.SendJSON(ctx, c.http, endpoint, body, nil, c.log)
	if err != nil {
		c.log.Error("vision.recognize.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return recognize.RawExtraction{}, err
	}

	var vr struct {
		Responses []struct {
			TextAnnotations []struct {
				Description string `json:"description"`
			} `json:"textAnnotations"`
		} `json:"responses"`
	}
	if err := json.Unmarshal(raw, &vr); err != nil {
		c.log.Error("vision.recognize.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return recognize.RawExtraction{}, fmt.Errorf("decode vision response: %w", err)
	}
	if len(vr.Responses) == 0 || len(vr.Responses[0].TextAnnotations) == 0 {
		c.log.Warn("vision.recognize.no_text", "req_id", rid,
			"elapsed_ms", time.Since(start).Milliseconds())
		return recognize.RawExtraction{}, common.ErrNoContent
	}

	text := vr.Responses[0].TextAnnotations[0].Description
	c.log.Info("vision.recognize.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recognize.RawExtraction{Kind: recognize.KindText, Text: text}, nil
}
