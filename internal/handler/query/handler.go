// Package query exposes the dialogue engine over an SSE streaming endpoint.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
	"github.com/ovc-dev/ovc/backend/pkg/utils"
)

// Handler streams dialogue replies over Server-Sent Events.
type Handler struct {
	engine  *dialog.Engine
	timeout time.Duration
	log     *zap.Logger
}

// New creates the query handler. A zero timeout disables the per-turn limit.
func New(engine *dialog.Engine, timeout time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		engine:  engine,
		timeout: timeout,
		log:     log,
	}
}

// RegisterRoutes registers the dialogue routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/query", h.handleQuery)
}

// StreamResponse is one frame of the SSE reply stream.
type StreamResponse struct {
	Event     string `json:"event"`
	Content   string `json:"content,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Finished  bool   `json:"finished,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.SessionID == "" || payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "Missing message or sessionId")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply, err := h.engine.Reply(ctx, payload.SessionID, payload.Message)
	if err != nil {
		var collab *dialog.CollaboratorError
		if errors.As(err, &collab) {
			h.log.Error("dialogue turn failed",
				zap.String("sessionId", payload.SessionID),
				zap.Error(err))
			utils.RespondError(w, http.StatusBadGateway, "dialogue turn failed")
			return
		}
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer reply.Close()

	utils.SetupSSEHeaders(w)
	h.sendSSE(w, flusher, StreamResponse{Event: "start", SessionID: payload.SessionID})

	var full strings.Builder
	for {
		fragment, recvErr := reply.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.log.Error("dialogue stream failed",
				zap.String("sessionId", payload.SessionID),
				zap.Error(recvErr))
			h.sendSSE(w, flusher, StreamResponse{
				Event:     "error",
				SessionID: payload.SessionID,
				Error:     recvErr.Error(),
			})
			return
		}
		if fragment == "" {
			continue
		}

		full.WriteString(fragment)
		h.sendSSE(w, flusher, StreamResponse{
			Event:     "delta",
			SessionID: payload.SessionID,
			Content:   fragment,
		})
	}

	h.sendSSE(w, flusher, StreamResponse{
		Event:     "message",
		SessionID: payload.SessionID,
		Content:   full.String(),
	})
	h.sendSSE(w, flusher, StreamResponse{
		Event:     "end",
		SessionID: payload.SessionID,
		Finished:  true,
	})

	h.log.Info("query processed", zap.String("sessionId", payload.SessionID))
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}
