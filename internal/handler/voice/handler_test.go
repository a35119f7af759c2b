package voice

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
	"github.com/ovc-dev/ovc/backend/internal/service/inventory"
	"github.com/ovc-dev/ovc/backend/internal/service/records"
	"github.com/ovc-dev/ovc/backend/internal/service/session"
	"github.com/ovc-dev/ovc/backend/internal/service/speech"
)

func boolPtr(v bool) *bool { return &v }

type fakeSpeech struct {
	mu            sync.Mutex
	transcript    string
	transcribeErr error
	audio         speech.Audio
	synthesizeErr error
	asrEnabled    bool
	ttsEnabled    bool
	gotAudio      []byte
	gotMime       string
	gotText       string
	gotVoice      string
}

func (f *fakeSpeech) TranscriptionEnabled() bool { return f.asrEnabled }

func (f *fakeSpeech) SynthesisEnabled() bool { return f.ttsEnabled }

func (f *fakeSpeech) TranscribeBuffer(_ context.Context, audio []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotAudio = append([]byte(nil), audio...)
	f.gotMime = mimeType
	return f.transcript, f.transcribeErr
}

func (f *fakeSpeech) SynthesizeToBuffer(_ context.Context, text, voice string) (speech.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotText = text
	f.gotVoice = voice
	return f.audio, f.synthesizeErr
}

func (f *fakeSpeech) captured() (audio []byte, mimeType, text, voice string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gotAudio, f.gotMime, f.gotText, f.gotVoice
}

func newTestEngine(t *testing.T) *dialog.Engine {
	t.Helper()

	store := catalog.NewStore(catalog.Profile{
		StoreName:         "OVC Outfitters",
		StoreDescription:  "Outdoor gear and gadgets for every trail.",
		ProductCategories: []string{"electronics"},
	}, []catalog.StaffMember{
		{Name: "Alice", Availability: []string{"2:00 PM"}},
	})
	ledger := inventory.NewLedger([]catalog.Product{{Name: "Laptop", Quantity: 10}})

	sink, err := records.NewFileSink(t.TempDir())
	require.NoError(t, err)

	return dialog.NewEngine(store, session.NewStore(), ledger, sink, nil, nil)
}

func dialVoice(t *testing.T, h *Handler, sessionID string) *websocket.Conn {
	t.Helper()

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		h.RegisterRoutes(api)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/voice/" + sessionID
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func sendEnvelope(t *testing.T, ws *websocket.Conn, msgType, sessionID string, payload any) {
	t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, ws.WriteJSON(inboundMessage{
		Type:      msgType,
		SessionID: sessionID,
		Data:      raw,
		Timestamp: time.Now().Unix(),
	}))
}

func readEnvelope(t *testing.T, ws *websocket.Conn) (string, map[string]any) {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg struct {
		Type      string         `json:"type"`
		SessionID string         `json:"sessionId"`
		Data      map[string]any `json:"data"`
	}
	require.NoError(t, ws.ReadJSON(&msg))
	return msg.Type, msg.Data
}

func expectResult(t *testing.T, ws *websocket.Conn, dataType string) map[string]any {
	t.Helper()

	msgType, data := readEnvelope(t, ws)
	require.Equal(t, "result", msgType)
	require.Equal(t, dataType, data["type"])
	return data
}

func TestConnectedEnvelopeCarriesGreeting(t *testing.T) {
	h := New(newTestEngine(t), &fakeSpeech{}, time.Second, nil)
	ws := dialVoice(t, h, "s1")

	data := expectResult(t, ws, "connected")
	require.Equal(t, "Welcome to OVC Outfitters! How may I assist you today?", data["greeting"])
	require.Equal(t, false, data["tts"])
}

func TestTextEnvelopeRoundTrip(t *testing.T) {
	h := New(newTestEngine(t), &fakeSpeech{}, time.Second, nil)
	ws := dialVoice(t, h, "s1")
	expectResult(t, ws, "connected")

	sendEnvelope(t, ws, "text", "s1", TextMessage{Text: "order laptop"})

	user := expectResult(t, ws, "user")
	require.Equal(t, "order laptop", user["text"])

	want := "Did you mean Laptop? Please say 'yes' or 'no'."
	delta := expectResult(t, ws, "ai_delta")
	require.Equal(t, want, delta["text"])

	final := expectResult(t, ws, "ai")
	require.Equal(t, want, final["text"])
	require.Equal(t, true, final["isFinal"])
}

func TestAudioTranscribesAndSynthesizes(t *testing.T) {
	fake := &fakeSpeech{
		transcript: "order laptop",
		audio:      speech.Audio{Data: []byte("mp3!"), Format: "audio/mpeg"},
		asrEnabled: true,
		ttsEnabled: true,
	}
	h := New(newTestEngine(t), fake, time.Second, nil)
	ws := dialVoice(t, h, "s1")
	expectResult(t, ws, "connected")

	sendEnvelope(t, ws, "audio", "s1", AudioMessage{AudioData: []byte("aud"), Format: "wav"})
	sendEnvelope(t, ws, "audio", "s1", AudioMessage{AudioData: []byte("io-2"), IsFinal: true})

	user := expectResult(t, ws, "user")
	require.Equal(t, "order laptop", user["text"])

	expectResult(t, ws, "ai_delta")
	expectResult(t, ws, "ai")

	tts := expectResult(t, ws, "tts")
	require.Equal(t, "bXAzIQ==", tts["audioData"])
	require.Equal(t, "audio/mpeg", tts["format"])

	gotAudio, gotMime, gotText, _ := fake.captured()
	require.Equal(t, []byte("audio-2"), gotAudio)
	require.Equal(t, "audio/wav", gotMime)
	require.Equal(t, "Did you mean Laptop? Please say 'yes' or 'no'.", gotText)
}

func TestEmptyTranscriptReprompts(t *testing.T) {
	fake := &fakeSpeech{asrEnabled: true}
	h := New(newTestEngine(t), fake, time.Second, nil)
	ws := dialVoice(t, h, "s1")
	expectResult(t, ws, "connected")

	sendEnvelope(t, ws, "audio", "s1", AudioMessage{AudioData: []byte("noise"), IsFinal: true})

	reply := expectResult(t, ws, "ai")
	require.Equal(t, dialog.NoInputReply, reply["text"])
}

func TestExitUtteranceGetsFarewell(t *testing.T) {
	h := New(newTestEngine(t), &fakeSpeech{}, time.Second, nil)
	ws := dialVoice(t, h, "s1")
	expectResult(t, ws, "connected")

	sendEnvelope(t, ws, "text", "s1", TextMessage{Text: "goodbye"})

	expectResult(t, ws, "user")
	reply := expectResult(t, ws, "ai")
	require.Equal(t, dialog.FarewellReply, reply["text"])
}

func TestSessionMismatchRejected(t *testing.T) {
	h := New(newTestEngine(t), &fakeSpeech{}, time.Second, nil)
	ws := dialVoice(t, h, "s1")
	expectResult(t, ws, "connected")

	sendEnvelope(t, ws, "text", "other", TextMessage{Text: "hello"})

	msgType, data := readEnvelope(t, ws)
	require.Equal(t, "error", msgType)
	require.Equal(t, "session mismatch", data["message"])
}

func TestAudioWithoutTranscriberIsRejected(t *testing.T) {
	h := New(newTestEngine(t), &fakeSpeech{}, time.Second, nil)
	ws := dialVoice(t, h, "s1")
	expectResult(t, ws, "connected")

	sendEnvelope(t, ws, "audio", "s1", AudioMessage{AudioData: []byte("aud"), IsFinal: true})

	msgType, data := readEnvelope(t, ws)
	require.Equal(t, "error", msgType)
	require.Equal(t, "transcription is not configured", data["message"])
}

func TestApplyConfigUpdatesState(t *testing.T) {
	state := &connectionState{sessionID: "s1", ttsEnabled: true}

	applyConfig(state, ConfigMessage{
		TTSEnabled: boolPtr(false),
		Voice:      "new-voice",
	})

	if state.ttsEnabled {
		t.Fatalf("expected TTS disabled")
	}
	if state.voice != "new-voice" {
		t.Fatalf("expected voice new-voice, got %s", state.voice)
	}
}
