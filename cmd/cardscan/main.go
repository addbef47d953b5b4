// One-shot scanner: image file in, vCard out.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cardscan/internal/common"
	"cardscan/internal/recognize"
	"cardscan/internal/recognize/gemini"
	"cardscan/internal/recognize/tesseract"
	"cardscan/internal/recognize/vision"
	"cardscan/internal/scan"
	"cardscan/internal/session"
	"cardscan/internal/vcard"
)

func main() {
	var (
		imagePath = flag.String("image", "", "path to the business-card image (JPEG/PNG)")
		backend   = flag.String("backend", "tesseract", "recognition backend: gemini | vision | tesseract")
		outPath   = flag.String("o", "", "output .vcf path (default: sanitized contact name in cwd)")
		timeout   = flag.Duration("timeout", 2*time.Minute, "overall deadline")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *imagePath == "" {
		logger.Error("usage", "cmd", "cardscan -image card.jpg [-backend tesseract] [-o out.vcf]")
		os.Exit(2)
	}

	image, err := os.ReadFile(*imagePath)
	if err != nil {
		logger.Error("read image", "path", *imagePath, "error", err)
		os.Exit(1)
	}

	var rec recognize.Recognizer
	switch *backend {
	case "gemini":
		rec = gemini.NewClient(gemini.Config{}, logger)
	case "vision":
		rec = vision.NewClient(vision.Config{}, logger)
	case "tesseract":
		rec = tesseract.NewEngine(tesseract.Config{}, logger)
	default:
		logger.Error("unknown backend", "backend", *backend)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sessions := session.NewStore(5*time.Minute, 0, logger)
	analyzer := scan.NewAnalyzer(sessions, logger)

	out, err := analyzer.Analyze(ctx, rec, image)
	if err != nil {
		logger.Error("analyze failed",
			"backend", *backend,
			"upstream_status", common.UpstreamStatus(err),
			"error", err,
		)
		os.Exit(1)
	}
	if !out.Success {
		logger.Error("analyze produced no content", "backend", *backend)
		os.Exit(1)
	}

	record := out.Session.Engine.Record()
	if items := out.Session.Engine.Items(); len(items) > 0 {
		logger.Warn("unassigned items left; review them via the server API",
			"count", len(items))
	}
	if out.Session.Diagnostic != "" {
		logger.Warn("extraction degraded", "diagnostic", out.Session.Diagnostic)
	}

	data, err := vcard.Encode(record)
	if err != nil {
		logger.Error("encode vcard", "error", err)
		os.Exit(1)
	}

	dest := *outPath
	if dest == "" {
		dest = vcard.Filename(record)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		logger.Error("write vcard", "path", dest, "error", err)
		os.Exit(1)
	}

	logger.Info("vcard written",
		"path", filepath.Clean(dest),
		"name", record.DisplayName(),
		"bytes", len(data),
	)
	fmt.Println(dest)
}
