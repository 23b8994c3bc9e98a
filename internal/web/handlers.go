package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/ops"
	"github.com/hpungsan/mnemo/internal/session"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Handlers contains HTTP route handlers for the local API.
type Handlers struct {
	app         *ops.App
	renderer    *Renderer
	logger      *slog.Logger
	revealDelay time.Duration
}

// Request bodies.
type createSessionRequest struct {
	Input string `json:"input"`
}

type convertRequest struct {
	Input string `json:"input" validate:"required"`
}

type selectRequest struct {
	Candidate *int `json:"candidate" validate:"required,min=0"`
}

type overrideRequest struct {
	Word string `json:"word" validate:"required"`
}

type pinRequest struct {
	Words     []string `json:"words"`
	SessionID string   `json:"session_id"`
	Length    int      `json:"length" validate:"omitempty,min=1,max=20"`
	Theme     string   `json:"theme"`
}

var validate = validator.New()

// decodeJSON decodes an optional JSON body into v and validates it.
// An empty body leaves v at its zero value before validation.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid request body: %v", err))
	}
	if err := validate.Struct(v); err != nil {
		return errors.NewInvalidRequest(validationMessage(err))
	}
	return nil
}

// validationMessage reports the first failing field.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			return field + " is required"
		case "min", "max":
			return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
		}
		return field + " is invalid"
	}
	return "invalid request"
}

// slotIndex parses the {index} path parameter.
func slotIndex(r *http.Request) (int, error) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || i < 0 {
		return 0, errors.NewInvalidRequest("slot index must be a non-negative integer")
	}
	return i, nil
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func (h *Handlers) respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	renderJSON(w, status, data)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.app.Sessions.Len(),
	})
}

// HandleCreateSession handles POST /api/sessions. A body with input converts it
// right away; otherwise the new session starts EMPTY.
func (h *Handlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		s := h.app.Sessions.Create()
		renderJSON(w, http.StatusCreated, ops.SessionOutput{Snapshot: s.Snapshot(), Applied: true})
		return
	}
	out, err := h.app.Convert(r.Context(), ops.ConvertInput{Input: req.Input})
	h.respond(w, http.StatusCreated, out, err)
}

// HandleGetSession handles GET /api/sessions/{id}.
func (h *Handlers) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.GetSession(r.Context(), ops.SessionInput{SessionID: sessionID(r)})
	h.respond(w, http.StatusOK, out, err)
}

// HandleDeleteSession handles DELETE /api/sessions/{id}.
func (h *Handlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.app.DeleteSession(r.Context(), ops.SessionInput{SessionID: sessionID(r)}); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleConvert handles POST /api/sessions/{id}/convert.
func (h *Handlers) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.app.Convert(r.Context(), ops.ConvertInput{SessionID: sessionID(r), Input: req.Input})
	h.respond(w, http.StatusOK, out, err)
}

// HandleRegenerate handles POST /api/sessions/{id}/regenerate.
func (h *Handlers) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Regenerate(r.Context(), ops.SessionInput{SessionID: sessionID(r)})
	h.respond(w, http.StatusOK, out, err)
}

// HandleReset handles POST /api/sessions/{id}/reset.
func (h *Handlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.ResetSession(r.Context(), ops.SessionInput{SessionID: sessionID(r)})
	h.respond(w, http.StatusOK, out, err)
}

// HandleLockAll handles POST /api/sessions/{id}/lock-all.
func (h *Handlers) HandleLockAll(w http.ResponseWriter, r *http.Request) {
	h.lock(w, r, ops.LockAll, 0)
}

// HandleUnlockAll handles POST /api/sessions/{id}/unlock-all.
func (h *Handlers) HandleUnlockAll(w http.ResponseWriter, r *http.Request) {
	h.lock(w, r, ops.LockClearAll, 0)
}

// HandleSlotLock handles POST /api/sessions/{id}/slots/{index}/lock.
func (h *Handlers) HandleSlotLock(w http.ResponseWriter, r *http.Request) {
	h.slotLock(w, r, ops.LockSet)
}

// HandleSlotUnlock handles POST /api/sessions/{id}/slots/{index}/unlock.
func (h *Handlers) HandleSlotUnlock(w http.ResponseWriter, r *http.Request) {
	h.slotLock(w, r, ops.LockClear)
}

// HandleSlotToggle handles POST /api/sessions/{id}/slots/{index}/toggle.
func (h *Handlers) HandleSlotToggle(w http.ResponseWriter, r *http.Request) {
	h.slotLock(w, r, ops.LockToggle)
}

func (h *Handlers) slotLock(w http.ResponseWriter, r *http.Request, action ops.LockAction) {
	index, err := slotIndex(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.lock(w, r, action, index)
}

func (h *Handlers) lock(w http.ResponseWriter, r *http.Request, action ops.LockAction, index int) {
	out, err := h.app.Lock(r.Context(), ops.LockInput{
		SessionID: sessionID(r),
		Action:    action,
		Index:     index,
	})
	h.respond(w, http.StatusOK, out, err)
}

// HandleSlotSelect handles POST /api/sessions/{id}/slots/{index}/select.
func (h *Handlers) HandleSlotSelect(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req selectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.app.Select(r.Context(), ops.SelectInput{
		SessionID: sessionID(r),
		Index:     index,
		Candidate: *req.Candidate,
	})
	h.respond(w, http.StatusOK, out, err)
}

// HandleSlotOverride handles POST /api/sessions/{id}/slots/{index}/override.
func (h *Handlers) HandleSlotOverride(w http.ResponseWriter, r *http.Request) {
	index, err := slotIndex(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.app.Override(r.Context(), ops.OverrideInput{
		SessionID: sessionID(r),
		Index:     index,
		Word:      req.Word,
	})
	h.respond(w, http.StatusOK, out, err)
}

// HandlePin handles POST /api/pin.
func (h *Handlers) HandlePin(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	out, err := h.app.Pin(r.Context(), ops.PinInput{
		Words:     req.Words,
		SessionID: req.SessionID,
		Length:    req.Length,
		Theme:     req.Theme,
	})
	h.respond(w, http.StatusOK, out, err)
}

// HandleLookup handles GET /api/lookup?digits=...
func (h *Handlers) HandleLookup(w http.ResponseWriter, r *http.Request) {
	out, err := h.app.Lookup(r.Context(), r.URL.Query().Get("digits"))
	h.respond(w, http.StatusOK, out, err)
}

// HandleDigits handles GET /api/digits?word=...&word=...&explain=true
func (h *Handlers) HandleDigits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	explain := q.Get("explain") == "true" || q.Get("explain") == "1"
	out, err := h.app.Digits(r.Context(), q["word"], explain)
	h.respond(w, http.StatusOK, out, err)
}

// HandleAlphabet handles GET /api/alphabet.
func (h *Handlers) HandleAlphabet(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{"digits": h.app.Alphabet()})
}

// HandleCard handles GET /sessions/{id}/card: the session's words rendered
// from markdown to an HTML card.
func (h *Handlers) HandleCard(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Sessions.Get(sessionID(r))
	if err != nil {
		h.renderer.renderErrorPage(w, r, err)
		return
	}
	snap := s.Snapshot()
	if snap.State != session.StateReady {
		h.renderer.renderErrorPage(w, r, errors.NewInvalidState("card", string(snap.State)))
		return
	}

	h.renderer.renderPage(w, r, http.StatusOK, "card", CardPageData{
		PageData: PageData{
			Title:   snap.Input,
			Version: h.renderer.version,
		},
		SessionID:    snap.ID,
		Digits:       snap.Input,
		Words:        snap.Words,
		RenderedHTML: h.renderer.renderMarkdown(cardMarkdown(snap)),
	})
}
