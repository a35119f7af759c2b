// Package speech wraps the transcription and synthesis collaborators used by
// the voice channel. Both are optional; the service reports what the current
// configuration enables.
package speech

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/config"
)

// ErrTranscriptionDisabled is returned when no transcription key is set.
var ErrTranscriptionDisabled = errors.New("speech: transcription is not configured")

// ErrSynthesisDisabled is returned when no synthesis key or voice is set.
var ErrSynthesisDisabled = errors.New("speech: synthesis is not configured")

// Transcriber turns an audio buffer into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer turns reply text into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) (Audio, error)
}

// Service gates the speech collaborators behind the configuration.
type Service struct {
	transcriber Transcriber
	synthesizer Synthesizer
	log         *zap.Logger
}

// NewService wires the configured collaborators. Missing credentials leave
// the matching capability disabled rather than failing startup.
func NewService(cfg config.SpeechConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{log: log}
	if cfg.TranscriptionEnabled() {
		s.transcriber = NewDeepgramClient(cfg)
	}
	if cfg.SynthesisEnabled() {
		s.synthesizer = NewElevenLabsClient(cfg)
	}
	return s
}

// TranscriptionEnabled reports whether TranscribeBuffer can serve.
func (s *Service) TranscriptionEnabled() bool { return s.transcriber != nil }

// SynthesisEnabled reports whether SynthesizeToBuffer can serve.
func (s *Service) SynthesisEnabled() bool { return s.synthesizer != nil }

// TranscribeBuffer transcribes one audio buffer.
func (s *Service) TranscribeBuffer(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if s.transcriber == nil {
		return "", ErrTranscriptionDisabled
	}

	text, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		s.log.Error("transcription failed", zap.Error(err))
		return "", err
	}
	return text, nil
}

// SynthesizeToBuffer renders reply text into audio. An empty voice uses the
// configured default.
func (s *Service) SynthesizeToBuffer(ctx context.Context, text, voice string) (Audio, error) {
	if s.synthesizer == nil {
		return Audio{}, ErrSynthesisDisabled
	}

	audio, err := s.synthesizer.Synthesize(ctx, text, voice)
	if err != nil {
		s.log.Error("synthesis failed", zap.Error(err))
		return Audio{}, err
	}
	return audio, nil
}
