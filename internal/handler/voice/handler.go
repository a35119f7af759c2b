// Package voice drives spoken conversations over a websocket: audio chunks
// in, transcription, one dialogue turn, synthesized reply out.
package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
	"github.com/ovc-dev/ovc/backend/internal/service/speech"
)

// SpeechService is the slice of the speech facade the voice channel needs.
type SpeechService interface {
	TranscriptionEnabled() bool
	SynthesisEnabled() bool
	TranscribeBuffer(ctx context.Context, audio []byte, mimeType string) (string, error)
	SynthesizeToBuffer(ctx context.Context, text, voice string) (speech.Audio, error)
}

// Handler upgrades voice connections and runs one dialogue turn per utterance.
type Handler struct {
	engine   *dialog.Engine
	speech   SpeechService
	timeout  time.Duration
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// New creates the voice handler. A zero timeout disables the per-turn limit.
func New(engine *dialog.Engine, speechSvc SpeechService, timeout time.Duration, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		engine:  engine,
		speech:  speechSvc,
		timeout: timeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: log,
	}
}

// RegisterRoutes registers the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/voice/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// AudioMessage carries one recorded audio chunk. Chunks buffer until a final
// chunk arrives, then the whole utterance is transcribed.
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage carries a typed utterance.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage adjusts per-connection voice options.
type ConfigMessage struct {
	TTSEnabled *bool  `json:"ttsEnabled,omitempty"`
	Voice      string `json:"voice"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; the websocket allows only one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

type connectionState struct {
	sessionID  string
	voice      string
	ttsEnabled bool
	format     string
	buffer     bytes.Buffer
}

func (h *Handler) newConnectionState(sessionID string) *connectionState {
	return &connectionState{
		sessionID:  sessionID,
		ttsEnabled: h.speech != nil && h.speech.SynthesisEnabled(),
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.log.Info("voice connection opened", zap.String("sessionId", sessionID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	wsc := &wsConn{conn: conn}
	go h.pingLoop(ctx, wsc)

	state := h.newConnectionState(sessionID)

	h.send(wsc, sessionID, map[string]any{
		"type":     "connected",
		"greeting": h.engine.Greeting(),
		"tts":      state.ttsEnabled,
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.log.Warn("voice read failed", zap.String("sessionId", sessionID), zap.Error(err))
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(wsc, "session mismatch")
				continue
			}

			h.handleMessage(ctx, wsc, state, &msg)
		}
	}
}

func (h *Handler) handleMessage(ctx context.Context, wsc *wsConn, state *connectionState, msg *inboundMessage) {
	switch msg.Type {
	case "audio":
		h.handleAudioMessage(ctx, wsc, state, msg.Data)
	case "text":
		h.handleTextMessage(ctx, wsc, state, msg.Data)
	case "config":
		h.handleConfigMessage(wsc, state, msg.Data)
	default:
		h.sendError(wsc, "unsupported message type: "+msg.Type)
	}
}

func (h *Handler) handleAudioMessage(ctx context.Context, wsc *wsConn, state *connectionState, raw json.RawMessage) {
	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(wsc, "invalid audio payload")
		return
	}

	if len(audio.AudioData) > 0 {
		state.buffer.Write(audio.AudioData)
	}
	if audio.Format != "" {
		state.format = audio.Format
	}

	if audio.IsFinal {
		h.processBufferedAudio(ctx, wsc, state)
	}
}

func (h *Handler) processBufferedAudio(ctx context.Context, wsc *wsConn, state *connectionState) {
	audioBytes := state.buffer.Bytes()
	state.buffer.Reset()

	if len(audioBytes) == 0 {
		return
	}

	if h.speech == nil || !h.speech.TranscriptionEnabled() {
		h.sendError(wsc, "transcription is not configured")
		return
	}

	transcript, err := h.speech.TranscribeBuffer(ctx, audioBytes, mimeType(state.format))
	if err != nil {
		h.sendError(wsc, fmt.Sprintf("transcription failed: %v", err))
		return
	}

	if transcript == "" {
		h.finishReply(ctx, wsc, state, dialog.NoInputReply)
		return
	}

	h.processUtterance(ctx, wsc, state, transcript)
}

func (h *Handler) handleTextMessage(ctx context.Context, wsc *wsConn, state *connectionState, raw json.RawMessage) {
	var text TextMessage
	if err := json.Unmarshal(raw, &text); err != nil {
		h.sendError(wsc, "invalid text payload")
		return
	}
	if text.Text == "" {
		return
	}

	h.processUtterance(ctx, wsc, state, text.Text)
}

func (h *Handler) processUtterance(ctx context.Context, wsc *wsConn, state *connectionState, utterance string) {
	h.send(wsc, state.sessionID, map[string]any{
		"type": "user",
		"text": utterance,
	})

	if dialog.IsExit(utterance) {
		h.finishReply(ctx, wsc, state, dialog.FarewellReply)
		return
	}

	turnCtx := ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	reply, err := h.engine.Reply(turnCtx, state.sessionID, utterance)
	if err != nil {
		h.log.Error("voice turn failed", zap.String("sessionId", state.sessionID), zap.Error(err))
		h.sendError(wsc, err.Error())
		return
	}
	defer reply.Close()

	var full strings.Builder
	for {
		fragment, recvErr := reply.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			h.log.Error("voice stream failed", zap.String("sessionId", state.sessionID), zap.Error(recvErr))
			h.sendError(wsc, "dialogue turn failed")
			return
		}
		if fragment == "" {
			continue
		}

		full.WriteString(fragment)
		h.send(wsc, state.sessionID, map[string]any{
			"type": "ai_delta",
			"text": fragment,
		})
	}

	h.finishReply(ctx, wsc, state, full.String())
}

// finishReply sends the final reply text and, when enabled, its audio.
func (h *Handler) finishReply(ctx context.Context, wsc *wsConn, state *connectionState, text string) {
	h.send(wsc, state.sessionID, map[string]any{
		"type":    "ai",
		"text":    text,
		"isFinal": true,
	})

	if state.ttsEnabled && text != "" && h.speech != nil {
		h.sendTTS(ctx, wsc, state, text)
	}
}

func (h *Handler) sendTTS(ctx context.Context, wsc *wsConn, state *connectionState, text string) {
	audio, err := h.speech.SynthesizeToBuffer(ctx, text, state.voice)
	if err != nil {
		h.log.Warn("synthesis failed", zap.String("sessionId", state.sessionID), zap.Error(err))
		h.send(wsc, state.sessionID, map[string]any{
			"type":  "tts",
			"error": "synthesis failed",
		})
		return
	}

	if len(audio.Data) == 0 {
		return
	}

	h.send(wsc, state.sessionID, map[string]any{
		"type":      "tts",
		"audioData": base64.StdEncoding.EncodeToString(audio.Data),
		"format":    audio.Format,
		"isFinal":   true,
	})
}

func (h *Handler) handleConfigMessage(wsc *wsConn, state *connectionState, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(wsc, "invalid config payload")
		return
	}

	applyConfig(state, cfg)

	h.send(wsc, state.sessionID, map[string]any{
		"type":  "config",
		"tts":   state.ttsEnabled,
		"voice": state.voice,
	})
}

func applyConfig(state *connectionState, cfg ConfigMessage) {
	if cfg.Voice != "" {
		state.voice = cfg.Voice
	}
	if cfg.TTSEnabled != nil {
		state.ttsEnabled = *cfg.TTSEnabled
	}
}

func (h *Handler) send(wsc *wsConn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := wsc.writeJSON(msg); err != nil {
		h.log.Warn("voice write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(wsc *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := wsc.writeJSON(msg); err != nil {
		h.log.Warn("voice write failed", zap.Error(err))
	}
}

func (h *Handler) pingLoop(ctx context.Context, wsc *wsConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wsc.ping(); err != nil {
				return
			}
		}
	}
}

// mimeType widens a bare container name like "wav" into a MIME type.
func mimeType(format string) string {
	if format == "" {
		format = "wav"
	}
	if strings.Contains(format, "/") {
		return format
	}
	return "audio/" + format
}
