package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"cardscan/internal/common"
	"cardscan/internal/recognize"
)

// cardPrompt asks for structured JSON with every contact field plus
// extractedItems holding all text that fit none of the named fields, so the
// user can route those fragments manually afterwards.
const cardPrompt = `この名刺画像から以下の情報を抽出し、JSON形式で返してください。不明な場合は空文字列を使用してください。

{
  "name": "氏名（姓名）",
  "company": "会社名・組織名",
  "title": "役職・肩書き",
  "phone": "電話番号（最も一般的なもの）",
  "email": "メールアドレス",
  "address": "住所（完全な住所）",
  "website": "ウェブサイトURL",
  "extractedItems": [
    {
      "text": "抽出されたテキスト1",
      "type": "unknown"
    },
    {
      "text": "抽出されたテキスト2",
      "type": "unknown"
    }
  ]
}

extractedItemsには、上記の分類に当てはまらなかった全てのテキスト要素を含めてください。これにより、ユーザーが後でドラッグ&ドロップで正しい項目に割り当てることができます。

日本語と英語の両方に対応し、会社名の法人格（株式会社、Corp、Incなど）も含めて正確に抽出してください。`

func (c *Client) Name() string { return "gemini" }

// Recognize sends the card image with the fixed extraction prompt and returns
// the candidate's text content for the structured extractor. Non-2xx surfaces
// as a transport failure with the upstream status preserved; a 2xx with no
// candidates is common.ErrNoContent.
func (c *Client) Recognize(ctx context.Context, image []byte) (recognize.RawExtraction, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("gemini.recognize.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"image_bytes", len(image),
	)

	body := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": cardPrompt},
				{"inline_data": map[string]any{
					"mime_type": "image/jpeg",
					"data":      base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
		"generationConfig": map[string]any{
			"temperature":     c.cfg.Temperature,
			"maxOutputTokens": c.cfg.MaxTokens,
		},
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model, c.cfg.APIKey)
	raw, status, err := recognize.SendJSON(ctx, c.http, endpoint, body, nil, c.log)
	if err != nil {
		c.log.Error("gemini.recognize.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return recognize.RawExtraction{}, err
	}

	var gr struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.log.Error("gemini.recognize.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return recognize.RawExtraction{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		c.log.Warn("gemini.recognize.no_candidates",
			"req_id", rid, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return recognize.RawExtraction{}, common.ErrNoContent
	}

	text := strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text)
	c.log.Info("gemini.recognize.ok",
		"req_id", rid,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recognize.RawExtraction{Kind: recognize.KindStructured, Text: text}, nil
}
