package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/app"
	"github.com/jaminalder/time-travel-tic-tac-toe/internal/domain"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *zap.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string) ([]byte, error) {
	return renderTemplate(h.tpl.board, "", newBoardView(gs, errMsg))
}

// writeHTML writes a rendered body, or the failure response when err is set.
func (h *handlers) writeHTML(w http.ResponseWriter, r *http.Request, status int, body []byte, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	body, err := renderTemplate(h.tpl.index, "base", nil)
	h.writeHTML(w, r, http.StatusOK, body, err)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.CreateGame(r.Context())
	if err != nil {
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	// Render page with embedded board container
	body, err := renderTemplate(h.tpl.game, "base", newBoardView(*gs, ""))
	h.writeHTML(w, r, http.StatusOK, body, err)
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cell, err := formInt(r, "cell")
	if err != nil {
		h.badRequest(w, r, id, "Invalid cell")
		return
	}
	gs, _, err := h.svc.Play(r.Context(), id, cell)
	h.respond(w, r, gs, err, "Invalid cell")
}

func (h *handlers) jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	step, err := formInt(r, "step")
	if err != nil {
		h.badRequest(w, r, id, "Invalid step")
		return
	}
	gs, err := h.svc.Jump(r.Context(), id, step)
	h.respond(w, r, gs, err, "Invalid step")
}

func (h *handlers) order(w http.ResponseWriter, r *http.Request) {
	gs, err := h.svc.ToggleOrder(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, gs, err, "")
}

// respond writes the board fragment, mapping a range error to 400 with rangeMsg.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, gs *app.GameState, err error, rangeMsg string) {
	status := http.StatusOK
	var errMsg string
	if err != nil {
		if !errors.Is(err, domain.ErrOutOfRange) || gs == nil {
			h.fail(w, r, err)
			return
		}
		status = http.StatusBadRequest
		errMsg = rangeMsg
	}
	body, err := h.renderBoard(*gs, errMsg)
	h.writeHTML(w, r, status, body, err)
}

func (h *handlers) badRequest(w http.ResponseWriter, r *http.Request, id, msg string) {
	gs, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	body, err := h.renderBoard(*gs, msg)
	h.writeHTML(w, r, http.StatusBadRequest, body, err)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, app.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func formInt(r *http.Request, key string) (int, error) {
	if err := r.ParseForm(); err != nil {
		return 0, err
	}
	return strconv.Atoi(r.Form.Get(key))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Get(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub := h.svc.Subscribe(ctx, id)
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(w, "board", b)
			flusher.Flush()
		}
	}
}

// writeEvent emits one SSE event; every payload line gets its own data field.
func writeEvent(w io.Writer, name string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", name)
	for _, line := range strings.Split(strings.TrimRight(string(payload), "\n"), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}

// renderState is the broadcast renderer handed to the service.
// Subscribers get an empty event when rendering fails.
func (h *handlers) renderState(gs app.GameState) []byte {
	b, err := h.renderBoard(gs, "")
	if err != nil {
		h.log.Error("render broadcast", zap.String("game_id", gs.ID), zap.Error(err))
		return nil
	}
	return b
}
