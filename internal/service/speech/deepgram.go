package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ovc-dev/ovc/backend/internal/config"
)

// DeepgramClient transcribes audio buffers through the prerecorded listen
// endpoint.
type DeepgramClient struct {
	cfg    config.SpeechConfig
	client *http.Client
}

// NewDeepgramClient builds the transcription client from the speech config.
func NewDeepgramClient(cfg config.SpeechConfig) *DeepgramClient {
	return &DeepgramClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// listenResponse mirrors the transcription payload down to the first
// alternative, which is all the dialogue loop consumes.
type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe sends the audio buffer for transcription and returns the first
// alternative transcript. An empty transcript is not an error; the caller
// re-prompts.
func (c *DeepgramClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	endpoint, err := url.Parse(c.cfg.DeepgramBaseURL + "/v1/listen")
	if err != nil {
		return "", fmt.Errorf("speech: deepgram url: %w", err)
	}

	query := endpoint.Query()
	query.Set("model", c.cfg.ASRModel)
	query.Set("language", c.cfg.ASRLanguage)
	query.Set("smart_format", strconv.FormatBool(c.cfg.SmartFormat))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("speech: build transcription request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.DeepgramAPIKey)
	req.Header.Set("Content-Type", mimeType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("speech: transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("speech: transcription status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("speech: decode transcription: %w", err)
	}

	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return decoded.Results.Channels[0].Alternatives[0].Transcript, nil
}
