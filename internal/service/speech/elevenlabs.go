package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ovc-dev/ovc/backend/internal/config"
)

// Audio is a synthesized reply ready to hand to a playback client.
type Audio struct {
	Data   []byte
	Format string
}

// ElevenLabsClient renders reply text into MP3 audio.
type ElevenLabsClient struct {
	cfg    config.SpeechConfig
	client *http.Client
}

// NewElevenLabsClient builds the synthesis client from the speech config.
func NewElevenLabsClient(cfg config.SpeechConfig) *ElevenLabsClient {
	return &ElevenLabsClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type voiceSettings struct {
	Stability       float32 `json:"stability"`
	SimilarityBoost float32 `json:"similarity_boost"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize renders the text and returns the MP3 bytes. An empty voice
// falls back to the configured voice ID.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voice string) (Audio, error) {
	payload, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: c.cfg.TTSModel,
		VoiceSettings: voiceSettings{
			Stability:       c.cfg.TTSStability,
			SimilarityBoost: c.cfg.TTSSimilarity,
		},
	})
	if err != nil {
		return Audio{}, fmt.Errorf("speech: encode synthesis request: %w", err)
	}

	if voice == "" {
		voice = c.cfg.ElevenLabsVoiceID
	}

	endpoint := c.cfg.ElevenLabsBaseURL + "/v1/text-to-speech/" + url.PathEscape(voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Audio{}, fmt.Errorf("speech: build synthesis request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.cfg.ElevenLabsAPIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("speech: synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Audio{}, fmt.Errorf("speech: synthesis status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("speech: read synthesis response: %w", err)
	}

	return Audio{Data: data, Format: "audio/mpeg"}, nil
}
