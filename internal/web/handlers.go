package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jaminalder/tic-tac-toe-history/internal/app"
	"github.com/jaminalder/tic-tac-toe-history/internal/domain"
)

const defaultHeartbeat = 15 * time.Second

type handlers struct {
	svc       *app.Service
	tpl       *templates
	log       *slog.Logger
	heartbeat time.Duration
}

func (h *handlers) renderBoard(s app.Session, errMsg string) ([]byte, error) {
	return renderTemplate(h.tpl.board, "", newBoardData(s, errMsg))
}

// broadcastBoard is the service renderer: the board fragment pushed to
// every open tab of a session.
func (h *handlers) broadcastBoard(s app.Session) []byte {
	b, err := h.renderBoard(s, "")
	if err != nil {
		h.log.Error("render broadcast", "id", s.ID, "error", err)
		return nil
	}
	return b
}

func (h *handlers) writeHTML(w http.ResponseWriter, status int, body []byte, err error) {
	if err != nil {
		h.log.Error("render template", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	data := struct{ Resume string }{}
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, ok := h.svc.Get(c.Value); ok {
			data.Resume = c.Value
		}
	}
	body, err := renderTemplate(h.tpl.index, "base", data)
	h.writeHTML(w, http.StatusOK, body, err)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.CreateGame()
	if err != nil {
		h.log.Error("create session", "error", err)
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	setSessionCookie(w, s.ID)
	http.Redirect(w, r, "/game/"+s.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	s, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	setSessionCookie(w, s.ID)
	body, err := renderTemplate(h.tpl.game, "base", newBoardData(*s, ""))
	h.writeHTML(w, http.StatusOK, body, err)
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	cell, err := formInt(r, "cell")
	if err != nil {
		h.badRequest(w, r, id, "Invalid cell")
		return
	}
	s, err := h.svc.Play(id, cell)
	h.respond(w, r, s, err)
}

func (h *handlers) jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	step, err := formInt(r, "step")
	if err != nil {
		h.badRequest(w, r, id, "Invalid step")
		return
	}
	s, err := h.svc.JumpTo(id, step)
	h.respond(w, r, s, err)
}

func (h *handlers) restart(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Restart(chi.URLParam(r, "id"))
	h.respond(w, r, s, err)
}

// respond writes the board fragment for the outcome of a transition.
func (h *handlers) respond(w http.ResponseWriter, r *http.Request, s *app.Session, err error) {
	if errors.Is(err, app.ErrNotFound) || s == nil {
		http.NotFound(w, r)
		return
	}
	status := http.StatusOK
	var errMsg string
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrOutOfBounds):
		status, errMsg = http.StatusBadRequest, "Out of bounds"
	case errors.Is(err, domain.ErrStepOutOfRange):
		status, errMsg = http.StatusBadRequest, "No such move"
	default:
		h.log.Error("transition", "id", s.ID, "error", err)
		status, errMsg = http.StatusInternalServerError, "Something went wrong"
	}
	body, rerr := h.renderBoard(*s, errMsg)
	h.writeHTML(w, status, body, rerr)
}

func (h *handlers) badRequest(w http.ResponseWriter, r *http.Request, id, msg string) {
	s, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	body, err := h.renderBoard(*s, msg)
	h.writeHTML(w, http.StatusBadRequest, body, err)
}

func formInt(r *http.Request, key string) (int, error) {
	if err := r.ParseForm(); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(r.Form.Get(key)))
}

func (h *handlers) state(w http.ResponseWriter, r *http.Request) {
	s, ok := h.svc.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Game.Snapshot()); err != nil {
		h.log.Error("encode snapshot", "id", s.ID, "error", err)
	}
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// Plain GETs (no EventSource Accept header) get the headers and an empty body
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
	w.WriteHeader(http.StatusOK)
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

// writeEvent frames payload as one SSE event; each line gets its own data field.
func writeEvent(w io.Writer, event string, payload []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range strings.Split(string(payload), "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = io.WriteString(w, "\n")
}
