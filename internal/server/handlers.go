package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/aiushlabs/aiush-gateway/internal/auth"
	"github.com/aiushlabs/aiush-gateway/internal/history"
	"github.com/aiushlabs/aiush-gateway/internal/normalize"
	"github.com/aiushlabs/aiush-gateway/internal/prompt"
	"github.com/aiushlabs/aiush-gateway/internal/turn"
	"github.com/aiushlabs/aiush-gateway/pkg/provider"
)

// maxBodyBytes caps request bodies. Image and audio payloads arrive
// base64-encoded inside the JSON body, so this must comfortably hold a
// phone camera photo.
const maxBodyBytes = 10 << 20

type messageRequest struct {
	Message string               `json:"message"`
	History []prompt.ChatMessage `json:"history"`
}

type ocrRequest struct {
	Image string `json:"image"`
}

type voiceRequest struct {
	Audio string `json:"audio"`
}

type voiceResponse struct {
	Transcript string `json:"transcript"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type ttsResponse struct {
	AudioURL string `json:"audioUrl"`
}

// historyItem is the wire shape of a stored turn record.
type historyItem struct {
	ID         int64               `json:"id"`
	Message    string              `json:"message"`
	Response   *normalize.Response `json:"response"`
	Kind       history.Kind        `json:"kind"`
	Timestamp  time.Time           `json:"timestamp"`
	ClientTime *time.Time          `json:"clientTime,omitempty"`
}

type historyListResponse struct {
	Records []historyItem `json:"records"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := s.orch.Message(r.Context(), req.Message, req.History)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req ocrRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := s.orch.AnalyzeImage(r.Context(), req.Image)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceRequest
	if !decode(w, r, &req) {
		return
	}

	transcript, err := s.orch.Transcribe(r.Context(), req.Audio)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, voiceResponse{Transcript: transcript})
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if !decode(w, r, &req) {
		return
	}

	audioURL, err := s.orch.Synthesize(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ttsResponse{AudioURL: audioURL})
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrMissingCredential)
		return
	}

	records, err := s.store.ListByOwner(r.Context(), id.Subject)
	if err != nil {
		slog.Error("history list failed", "owner", id.Subject, "err", err)
		writeError(w, err)
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		item := historyItem{
			ID:        rec.ID,
			Message:   rec.InputSummary,
			Response:  rec.Response,
			Kind:      rec.Kind,
			Timestamp: rec.CreatedAt,
		}
		if !rec.ClientTime.IsZero() {
			ct := rec.ClientTime
			item.ClientTime = &ct
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, historyListResponse{Records: items})
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, auth.ErrMissingCredential)
		return
	}

	if err := s.store.ClearOwner(r.Context(), id.Subject); err != nil {
		slog.Error("history clear failed", "owner", id.Subject, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "History cleared"})
}

// decode reads the JSON request body into dst, writing a 400 response
// and returning false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, errors.Join(turn.ErrBadRequest, err))
		return false
	}
	return true
}

type errorEnvelope struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps an orchestration error onto its HTTP status and the
// JSON error envelope. Upstream provider failures are surfaced as 502
// so that clients can distinguish them from gateway faults.
func writeError(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		status, message = http.StatusUnauthorized, "Missing Token"
	case errors.Is(err, auth.ErrInvalidCredential):
		status, message = http.StatusForbidden, "Invalid Token"
	case errors.Is(err, turn.ErrBadRequest):
		status, message = http.StatusBadRequest, "Bad Request"
	case errors.Is(err, provider.ErrUnavailable),
		errors.Is(err, provider.ErrRejected),
		errors.Is(err, provider.ErrEmptyResponse):
		status, message = http.StatusBadGateway, "Upstream Failed"
	default:
		status, message = http.StatusInternalServerError, "Internal Error"
	}

	env := errorEnvelope{Error: message}
	if status != http.StatusInternalServerError && err != nil {
		env.Detail = err.Error()
	}
	writeJSON(w, status, env)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
