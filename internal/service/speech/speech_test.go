package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ovc-dev/ovc/backend/internal/config"
)

func TestDeepgramTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/listen" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("model"); got != "nova-2" {
			t.Errorf("model = %q", got)
		}
		if got := r.URL.Query().Get("smart_format"); got != "true" {
			t.Errorf("smart_format = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Token dg-key" {
			t.Errorf("authorization = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("content type = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "RIFF-audio" {
			t.Errorf("body = %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":{"channels":[{"alternatives":[{"transcript":"order laptop","confidence":0.98}]}]}}`)
	}))
	defer srv.Close()

	client := NewDeepgramClient(config.SpeechConfig{
		DeepgramAPIKey:  "dg-key",
		DeepgramBaseURL: srv.URL,
		ASRModel:        "nova-2",
		ASRLanguage:     "en",
		SmartFormat:     true,
		Timeout:         5 * time.Second,
	})

	got, err := client.Transcribe(context.Background(), []byte("RIFF-audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if got != "order laptop" {
		t.Fatalf("transcript = %q, want %q", got, "order laptop")
	}
}

func TestDeepgramEmptyResultIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"results":{"channels":[]}}`)
	}))
	defer srv.Close()

	client := NewDeepgramClient(config.SpeechConfig{
		DeepgramAPIKey:  "dg-key",
		DeepgramBaseURL: srv.URL,
		Timeout:         5 * time.Second,
	})

	got, err := client.Transcribe(context.Background(), []byte("x"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe err: %v", err)
	}
	if got != "" {
		t.Fatalf("transcript = %q, want empty", got)
	}
}

func TestDeepgramServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewDeepgramClient(config.SpeechConfig{
		DeepgramAPIKey:  "dg-key",
		DeepgramBaseURL: srv.URL,
		Timeout:         5 * time.Second,
	})

	if _, err := client.Transcribe(context.Background(), []byte("x"), "audio/wav"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("xi-api-key"); got != "el-key" {
			t.Errorf("xi-api-key = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "audio/mpeg" {
			t.Errorf("accept = %q", got)
		}

		var req synthesizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Text != "Goodbye! Have a great day!" {
			t.Errorf("text = %q", req.Text)
		}
		if req.ModelID != "eleven_monolingual_v1" {
			t.Errorf("model_id = %q", req.ModelID)
		}
		if req.VoiceSettings.Stability != 0.5 || req.VoiceSettings.SimilarityBoost != 0.5 {
			t.Errorf("voice settings = %+v", req.VoiceSettings)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ID3-mp3-bytes"))
	}))
	defer srv.Close()

	client := NewElevenLabsClient(config.SpeechConfig{
		ElevenLabsAPIKey:  "el-key",
		ElevenLabsVoiceID: "voice-1",
		ElevenLabsBaseURL: srv.URL,
		TTSModel:          "eleven_monolingual_v1",
		TTSStability:      0.5,
		TTSSimilarity:     0.5,
		Timeout:           5 * time.Second,
	})

	audio, err := client.Synthesize(context.Background(), "Goodbye! Have a great day!", "")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if string(audio.Data) != "ID3-mp3-bytes" {
		t.Fatalf("audio data = %q", audio.Data)
	}
	if audio.Format != "audio/mpeg" {
		t.Fatalf("format = %q", audio.Format)
	}
}

func TestElevenLabsVoiceOverride(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	client := NewElevenLabsClient(config.SpeechConfig{
		ElevenLabsAPIKey:  "el-key",
		ElevenLabsVoiceID: "voice-1",
		ElevenLabsBaseURL: srv.URL,
		Timeout:           5 * time.Second,
	})

	if _, err := client.Synthesize(context.Background(), "hello", "voice-2"); err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if gotPath != "/v1/text-to-speech/voice-2" {
		t.Fatalf("path = %q", gotPath)
	}
}

func TestElevenLabsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewElevenLabsClient(config.SpeechConfig{
		ElevenLabsAPIKey:  "el-key",
		ElevenLabsVoiceID: "voice-1",
		ElevenLabsBaseURL: srv.URL,
		Timeout:           5 * time.Second,
	})

	if _, err := client.Synthesize(context.Background(), "hello", ""); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestServiceDisabledWithoutCredentials(t *testing.T) {
	svc := NewService(config.SpeechConfig{}, nil)

	if svc.TranscriptionEnabled() || svc.SynthesisEnabled() {
		t.Fatal("expected both capabilities disabled")
	}

	if _, err := svc.TranscribeBuffer(context.Background(), []byte("x"), "audio/wav"); !errors.Is(err, ErrTranscriptionDisabled) {
		t.Fatalf("TranscribeBuffer err = %v", err)
	}
	if _, err := svc.SynthesizeToBuffer(context.Background(), "hi", ""); !errors.Is(err, ErrSynthesisDisabled) {
		t.Fatalf("SynthesizeToBuffer err = %v", err)
	}
}
