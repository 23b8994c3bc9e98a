package web

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hpungsan/mnemo/internal/session"
)

// errStreamDone ends a reveal stream that asked to stop at READY.
var errStreamDone = stderrors.New("stream done")

// HandleReveal handles GET /api/sessions/{id}/reveal. It streams session events
// as server-sent events, holding each revealed slot after the first for the
// configured reveal delay. The first event is a snapshot of the current state.
// With ?until=ready the stream ends after the next ready or refreshed event.
func (h *Handlers) HandleReveal(w http.ResponseWriter, r *http.Request) {
	s, err := h.app.Sessions.Get(sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, h.logger, fmt.Errorf("streaming unsupported by %T", w))
		return
	}

	events, unsubscribe := s.Subscribe(session.DefaultEventBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "", "snapshot", s.Snapshot()); err != nil {
		return
	}
	flusher.Flush()

	untilReady := r.URL.Query().Get("until") == "ready"
	err = session.Pace(r.Context(), events, h.revealDelay, func(ev session.Event) error {
		if err := writeEvent(w, ev.ID, string(ev.Type), ev); err != nil {
			return err
		}
		flusher.Flush()
		if untilReady && (ev.Type == session.EventReady || ev.Type == session.EventRefreshed) {
			return errStreamDone
		}
		return nil
	})
	if err != nil && !stderrors.Is(err, errStreamDone) && !stderrors.Is(err, context.Canceled) {
		h.logger.Debug("reveal stream ended", "session_id", s.ID(), "error", err)
	}
}

// writeEvent writes one SSE frame with a JSON data line.
func writeEvent(w io.Writer, id, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if id != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", id); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
