// Package scan coordinates one capture: recognition, extraction, and session
// creation.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/common"
	"cardscan/internal/extract"
	"cardscan/internal/recognize"
	"cardscan/internal/session"
)

// Analyzer picks an extractor variant per the recognizer's wire shape and
// lands the result in a review session.
type Analyzer struct {
	heuristic  extract.Extractor
	structured extract.Extractor
	sessions   *session.Store
	logger     *slog.Logger
}

func NewAnalyzer(sessions *session.Store, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		heuristic:  extract.NewHeuristicTextExtractor(logger),
		structured: extract.NewStructuredExtractor(logger),
		sessions:   sessions,
		logger:     logger,
	}
}

// Outcome reports one analyze call. Success is false only for the "200 but
// nothing generated" case; parse degradation still counts as success with an
// empty contact and a diagnostic, so the caller can show a usable empty form.
type Outcome struct {
	Success bool
	Session *session.Session
}

// Analyze runs recognition, routes the raw payload through the matching
// extractor, and creates a fresh session. The image bytes are retained on the
// record as the vCard photo. Transport failures propagate with the upstream
// status preserved; no failure here is fatal to the process.
func (a *Analyzer) Analyze(ctx context.Context, rec recognize.Recognizer, image []byte) (Outcome, error) {
	rid := uuid.New().String()
	start := time.Now()

	a.logger.Info("analyze.start",
		"req_id", rid,
		"backend", rec.Name(),
		"image_bytes", len(image),
	)

	raw, err := rec.Recognize(ctx, image)
	if err != nil {
		if errors.Is(err, common.ErrNoContent) {
			// Backend answered but produced nothing; hand back an empty form.
			sess := a.sessions.Create(extract.Result{ParseDiagnostic: "no content generated"}, image)
			a.logger.Warn("analyze.no_content", "req_id", rid, "backend", rec.Name())
			return Outcome{Success: false, Session: sess}, nil
		}
		a.logger.Error("analyze.recognize_failed",
			"req_id", rid,
			"backend", rec.Name(),
			"upstream_status", common.UpstreamStatus(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return Outcome{}, err
	}

	var res extract.Result
	switch raw.Kind {
	case recognize.KindStructured:
		res, err = a.structured.Extract(ctx, raw.Text)
	default:
		res, err = a.heuristic.Extract(ctx, raw.Text)
	}
	if err != nil {
		return Outcome{}, common.WrapError(err, "extract")
	}

	sess := a.sessions.Create(res, image)
	a.logger.Info("analyze.ok",
		"req_id", rid,
		"backend", rec.Name(),
		"session_id", sess.ID.String(),
		"kind", string(raw.Kind),
		"unassigned_items", len(res.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Outcome{Success: true, Session: sess}, nil
}
