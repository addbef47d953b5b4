package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cardscan/internal/common"
	"cardscan/internal/export"
	"cardscan/internal/recognize"
	"cardscan/internal/scan"
	"cardscan/internal/session"
)

// stubRecognizer returns a canned payload, or a canned error.
type stubRecognizer struct {
	raw recognize.RawExtraction
	err error
}

func (s *stubRecognizer) Name() string { return "stub" }
func (s *stubRecognizer) Recognize(context.Context, []byte) (recognize.RawExtraction, error) {
	return s.raw, s.err
}

func newTestServer(t *testing.T, rec recognize.Recognizer) *httptest.Server {
	t.Helper()
	sessions := session.NewStore(time.Minute, 0, nil)
	analyzer := scan.NewAnalyzer(sessions, nil)
	h := NewHandlers(analyzer, sessions, export.NewService(nil),
		map[string]recognize.Recognizer{"stub": rec}, "stub", 8<<20, nil)
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func analyze(t *testing.T, srv *httptest.Server) sessionResponse {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{
		"imageBase64": base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze status = %d", resp.StatusCode)
	}
	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode analyze response: %v", err)
	}
	return out
}

func TestAnalyzeStructuredFlow(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{raw: recognize.RawExtraction{
		Kind: recognize.KindStructured,
		Text: `{"name":"田中 太郎","company":"株式会社テスト","extractedItems":[{"text":"営業部","type":"unknown"}]}`,
	}})

	out := analyze(t, srv)
	if !out.Success {
		t.Fatalf("success = false: %+v", out)
	}
	if out.Data.Name != "田中 太郎" || out.Data.Company != "株式会社テスト" {
		t.Fatalf("data = %+v", out.Data)
	}
	if len(out.UnassignedItems) != 1 || out.UnassignedItems[0].Text != "営業部" {
		t.Fatalf("items = %+v", out.UnassignedItems)
	}

	// route the leftover item into title
	resp := postJSON(t, srv.URL+"/api/sessions/"+out.SessionID+"/assign", map[string]any{
		"sourceIndex": 0,
		"field":       "title",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign status = %d", resp.StatusCode)
	}
	var after sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&after); err != nil {
		t.Fatalf("decode assign response: %v", err)
	}
	if after.Data.Title != "営業部" {
		t.Fatalf("title = %q", after.Data.Title)
	}
	if !after.UnassignedItems[0].Used {
		t.Fatalf("item not marked used in response")
	}
}

func TestAnalyzeParseFailureSoftFails(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{raw: recognize.RawExtraction{
		Kind: recognize.KindStructured,
		Text: "読み取れませんでした",
	}})

	out := analyze(t, srv)
	if !out.Success {
		t.Fatalf("parse degradation must still succeed: %+v", out)
	}
	if out.Data.Name != "" || out.Data.Company != "" {
		t.Fatalf("data must be empty: %+v", out.Data)
	}
	if out.ParseError == "" {
		t.Fatalf("parse diagnostic missing")
	}
	if out.RawResponse != "読み取れませんでした" {
		t.Fatalf("raw response not retained: %q", out.RawResponse)
	}
}

func TestAnalyzeTransportFailurePreservesStatus(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{
		err: &common.StatusError{StatusCode: http.StatusTooManyRequests},
	})

	resp := postJSON(t, srv.URL+"/api/analyze", map[string]string{
		"imageBase64": base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want upstream 429 preserved", resp.StatusCode)
	}
}

func TestVCardDownload(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{raw: recognize.RawExtraction{
		Kind: recognize.KindStructured,
		Text: `{"name":"田中 太郎","phone":"03-1234-5678 ext"}`,
	}})
	out := analyze(t, srv)

	resp, err := http.Get(srv.URL + "/api/sessions/" + out.SessionID + "/vcard")
	if err != nil {
		t.Fatalf("GET vcard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vcard status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/vcard") {
		t.Fatalf("content type = %q", ct)
	}
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	body := buf.String()
	if !strings.Contains(body, "TEL;TYPE=WORK,VOICE:03-1234-5678\r\n") {
		t.Fatalf("phone not cleaned:\n%s", body)
	}
	if !strings.Contains(body, "FN:田中 太郎\r\n") {
		t.Fatalf("FN line missing:\n%s", body)
	}
}

func TestVCardValidationGate(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{raw: recognize.RawExtraction{
		Kind: recognize.KindStructured,
		Text: `{"phone":"03-1234-5678"}`,
	}})
	out := analyze(t, srv)

	resp, err := http.Get(srv.URL + "/api/sessions/" + out.SessionID + "/vcard")
	if err != nil {
		t.Fatalf("GET vcard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for record without identity", resp.StatusCode)
	}
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{})
	resp, err := http.Get(srv.URL + "/api/sessions/3e0464c5-66a5-4f1f-9bb0-b84a64b547c5/vcard")
	if err != nil {
		t.Fatalf("GET vcard: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHeuristicBackendFlow(t *testing.T) {
	srv := newTestServer(t, &stubRecognizer{raw: recognize.RawExtraction{
		Kind: recognize.KindText,
		Text: "田中太郎\n株式会社テスト\ntaro@example.co.jp\n",
	}})

	out := analyze(t, srv)
	if out.Data.Email != "taro@example.co.jp" {
		t.Fatalf("email = %q", out.Data.Email)
	}
	if out.Data.Company != "株式会社テスト" {
		t.Fatalf("company = %q", out.Data.Company)
	}
	if len(out.UnassignedItems) != 0 {
		t.Fatalf("heuristic path must emit no items: %+v", out.UnassignedItems)
	}
}
