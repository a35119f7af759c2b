// speechtester exercises the speech collaborators from the command line:
// transcribe an audio file, or synthesize text into an audio file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/ovc-dev/ovc/backend/internal/config"
	"github.com/ovc-dev/ovc/backend/internal/service/speech"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	mode := flag.String("mode", "", "test mode: asr or tts")
	audioPath := flag.String("audio", "", "input audio file path (asr)")
	text := flag.String("text", "", "input text (tts)")
	outputPath := flag.String("out", "", "output audio file path (tts), generated when empty")
	format := flag.String("format", "", "input audio format (asr), derived from the file extension when empty")
	voice := flag.String("voice", "", "voice id (tts), configured default when empty")
	timeout := flag.Duration("timeout", 45*time.Second, "request timeout")
	flag.Parse()

	svc := speech.NewService(cfg.Speech, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "asr":
		runASR(ctx, svc, *audioPath, *format)
	case "tts":
		runTTS(ctx, svc, *text, *voice, *outputPath)
	default:
		flag.Usage()
		log.Fatal("specify -mode=asr or -mode=tts")
	}
}

func runASR(ctx context.Context, svc *speech.Service, audioPath, format string) {
	if !svc.TranscriptionEnabled() {
		log.Fatal("transcription is not configured, set DEEPGRAM_API_KEY")
	}
	if audioPath == "" {
		log.Fatal("asr mode needs -audio with an audio file path")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		log.Fatalf("failed to read audio file: %v", err)
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
		if format == "" {
			format = "wav"
		}
	}

	log.Printf("transcribing: file=%s format=%s bytes=%d", audioPath, format, len(audio))

	transcript, err := svc.TranscribeBuffer(ctx, audio, "audio/"+format)
	if err != nil {
		log.Fatalf("transcription failed: %v", err)
	}

	log.Printf("transcript: %q", transcript)
}

func runTTS(ctx context.Context, svc *speech.Service, text, voice, outputPath string) {
	if !svc.SynthesisEnabled() {
		log.Fatal("synthesis is not configured, set ELEVENLABS_API_KEY and ELEVENLABS_VOICE_ID")
	}
	if strings.TrimSpace(text) == "" {
		log.Fatal("tts mode needs -text with the text to synthesize")
	}

	log.Printf("synthesizing: chars=%d voice=%q", len(text), voice)

	audio, err := svc.SynthesizeToBuffer(ctx, text, voice)
	if err != nil {
		log.Fatalf("synthesis failed: %v", err)
	}

	if outputPath == "" {
		outputPath = fmt.Sprintf("tts-output-%d.mp3", time.Now().Unix())
	}

	if err := os.WriteFile(outputPath, audio.Data, 0o644); err != nil {
		log.Fatalf("failed to write audio file: %v", err)
	}

	log.Printf("synthesis done: wrote %s (%d bytes)", outputPath, len(audio.Data))
}
