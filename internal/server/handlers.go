package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"cardscan/internal/common"
	"cardscan/internal/contact"
	"cardscan/internal/export"
	"cardscan/internal/recognize"
	"cardscan/internal/reconcile"
	"cardscan/internal/scan"
	"cardscan/internal/session"
	"cardscan/internal/vcard"
)

// Handlers carries the wiring every endpoint needs.
type Handlers struct {
	analyzer       *scan.Analyzer
	sessions       *session.Store
	exporter       *export.Service
	backends       map[string]recognize.Recognizer
	defaultBackend string
	maxImageBytes  int64
	logger         *slog.Logger
}

func NewHandlers(
	analyzer *scan.Analyzer,
	sessions *session.Store,
	exporter *export.Service,
	backends map[string]recognize.Recognizer,
	defaultBackend string,
	maxImageBytes int64,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	if maxImageBytes <= 0 {
		maxImageBytes = 8 << 20
	}
	return &Handlers{
		analyzer:       analyzer,
		sessions:       sessions,
		exporter:       exporter,
		backends:       backends,
		defaultBackend: defaultBackend,
		maxImageBytes:  maxImageBytes,
		logger:         logger,
	}
}

type analyzeRequest struct {
	ImageBase64 string `json:"imageBase64"`
	Backend     string `json:"backend,omitempty"`
}

type sessionResponse struct {
	Success         bool                     `json:"success"`
	SessionID       string                   `json:"sessionId"`
	Phase           string                   `json:"phase"`
	Data            *contact.Record          `json:"data"`
	UnassignedItems []contact.UnassignedItem `json:"unassignedItems"`
	RawResponse     string                   `json:"rawResponse,omitempty"`
	ParseError      string                   `json:"parseError,omitempty"`
}

// Analyze accepts a base64 card image, runs recognition + extraction, and
// returns a fresh review session. Data-URI prefixes on the payload are
// tolerated and stripped.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ImageBase64 == "" {
		h.writeError(w, http.StatusBadRequest, "no image data provided")
		return
	}

	payload := req.ImageBase64
	if i := strings.Index(payload, ";base64,"); i >= 0 {
		payload = payload[i+len(";base64,"):]
	}
	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "imageBase64 is not valid base64")
		return
	}
	if int64(len(image)) > h.maxImageBytes {
		h.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes))
		return
	}

	name := req.Backend
	if name == "" {
		name = h.defaultBackend
	}
	backend, ok := h.backends[name]
	if !ok {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown backend %q", name))
		return
	}

	out, err := h.analyzer.Analyze(r.Context(), backend, image)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeSession(w, out.Session, out.Success)
}

func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	h.writeSession(w, sess, true)
}

func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	h.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

type assignRequest struct {
	SourceIndex int    `json:"sourceIndex"`
	Field       string `json:"field"`
	Policy      string `json:"policy,omitempty"`
}

// AssignItem routes one unassigned item into a field slot.
func (h *Handlers) AssignItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := sess.Engine.AssignItem(req.SourceIndex, contact.FieldKey(req.Field), reconcile.Policy(req.Policy))
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeSession(w, sess, true)
}

type transferRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Mode   string `json:"mode,omitempty"`
	Policy string `json:"policy,omitempty"`
}

// TransferField moves or copies a value between two slots.
func (h *Handlers) TransferField(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := sess.Engine.TransferField(
		contact.FieldKey(req.Source),
		contact.FieldKey(req.Target),
		reconcile.TransferMode(req.Mode),
		reconcile.Policy(req.Policy),
	)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeSession(w, sess, true)
}

// EditFields applies direct field edits from the review form.
func (h *Handlers) EditFields(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for k, v := range fields {
		if err := sess.Engine.SetField(contact.FieldKey(k), v); err != nil {
			h.writeAppError(w, err)
			return
		}
	}
	h.writeSession(w, sess, true)
}

// DownloadVCard serializes the session record. The validation gate blocks the
// download when no identifying field is set; session state is unchanged.
func (h *Handlers) DownloadVCard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	rec := sess.Engine.Record()
	data, err := vcard.Encode(rec)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	filename := vcard.Filename(rec)
	w.Header().Set("Content-Type", "text/vcard; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(data)
	h.logger.Info("vcard.download.ok", "session_id", sess.ID.String(), "filename", filename)
}

// ExportXLSX returns the session record as a one-row workbook.
func (h *Handlers) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.loadSession(w, r)
	if !ok {
		return
	}
	rec := sess.Engine.Record()
	if !rec.HasIdentity() {
		h.writeAppError(w, common.NewAppError("EXPORT_NO_IDENTITY", "record needs a name or company", common.ErrValidation))
		return
	}
	data, err := h.exporter.ContactsXLSX([]*contact.Record{rec})
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="contacts.xlsx"`)
	_, _ = w.Write(data)
}

func (h *Handlers) loadSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	sess, err := h.sessions.Get(id)
	if err != nil {
		h.writeAppError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *Handlers) writeSession(w http.ResponseWriter, sess *session.Session, success bool) {
	resp := sessionResponse{
		Success:         success,
		SessionID:       sess.ID.String(),
		Phase:           string(sess.Phase),
		Data:            sess.Engine.Record(),
		UnassignedItems: sess.Engine.Items(),
		RawResponse:     sess.RawResponse,
		ParseError:      sess.Diagnostic,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn("server.encode_response_error", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeAppError maps the error taxonomy onto HTTP statuses. Transport
// failures re-surface the upstream backend status unchanged.
func (h *Handlers) writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, common.ErrBusy):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, common.ErrValidation),
		errors.Is(err, common.ErrInvalidTarget),
		errors.Is(err, common.ErrInvalidSource),
		errors.Is(err, common.ErrInvalidInput):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrTransport):
		status := common.UpstreamStatus(err)
		if status == 0 {
			status = http.StatusBadGateway
		}
		h.writeError(w, status, err.Error())
	default:
		h.logger.Error("server.internal_error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
