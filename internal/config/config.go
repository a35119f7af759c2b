// Package config loads every runtime setting from the environment.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates the settings for the whole service.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Speech SpeechConfig
	Store  StoreConfig
	Log    LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		AI:     ai,
		Speech: speech,
		Store:  loadStoreConfig(),
		Log:    loadLogConfig(),
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
	// TurnTimeout bounds one dialogue turn end to end, including the
	// free-form stream. Zero disables the bound.
	TurnTimeout time.Duration
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	addr := port
	if !strings.Contains(port, ":") {
		if strings.Contains(port, " ") {
			return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
		}
		addr = ":" + port
	}

	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("TURN_TIMEOUT_SECONDS"); err != nil {
		return ServerConfig{}, err
	} else if override != nil {
		timeoutSeconds = *override
	}

	return ServerConfig{
		Addr:        addr,
		TurnTimeout: time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// AIConfig describes the free-form responder's chat model.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	StreamResponse bool
	// HistoryLimit caps how many recorded turns are handed to the model.
	HistoryLimit int
}

// Enabled reports whether the required credentials were provided.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds a chat model instance from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials missing: set ARK_API_KEY + ARK_MODEL or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	stream, err := parseBoolEnv("ARK_STREAM", true)
	if err != nil {
		return AIConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AI_HISTORY_LIMIT"); err != nil {
		return AIConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		StreamResponse: stream,
		HistoryLimit:   historyLimit,
	}, nil
}

// SpeechConfig describes the transcription and synthesis collaborators.
type SpeechConfig struct {
	DeepgramAPIKey  string
	DeepgramBaseURL string
	ASRModel        string
	ASRLanguage     string
	SmartFormat     bool

	ElevenLabsAPIKey  string
	ElevenLabsVoiceID string
	ElevenLabsBaseURL string
	TTSModel          string
	TTSStability      float32
	TTSSimilarity     float32

	Timeout time.Duration
}

// TranscriptionEnabled reports whether speech-to-text can be used.
func (c SpeechConfig) TranscriptionEnabled() bool {
	return c.DeepgramAPIKey != ""
}

// SynthesisEnabled reports whether text-to-speech can be used.
func (c SpeechConfig) SynthesisEnabled() bool {
	return c.ElevenLabsAPIKey != "" && c.ElevenLabsVoiceID != ""
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeoutSeconds := 30
	if override, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		timeoutSeconds = *override
	}

	stability := float32(0.5)
	if override, err := parseOptionalFloat32Env("TTS_STABILITY"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		stability = *override
	}

	similarity := float32(0.5)
	if override, err := parseOptionalFloat32Env("TTS_SIMILARITY_BOOST"); err != nil {
		return SpeechConfig{}, err
	} else if override != nil {
		similarity = *override
	}

	smartFormat, err := parseBoolEnv("DEEPGRAM_SMART_FORMAT", true)
	if err != nil {
		return SpeechConfig{}, err
	}

	return SpeechConfig{
		DeepgramAPIKey:    strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
		DeepgramBaseURL:   getEnvOrDefault("DEEPGRAM_BASE_URL", "https://api.deepgram.com"),
		ASRModel:          getEnvOrDefault("DEEPGRAM_MODEL", "nova-2"),
		ASRLanguage:       getEnvOrDefault("DEEPGRAM_LANGUAGE", "en"),
		SmartFormat:       smartFormat,
		ElevenLabsAPIKey:  strings.TrimSpace(os.Getenv("ELEVENLABS_API_KEY")),
		ElevenLabsVoiceID: strings.TrimSpace(os.Getenv("ELEVENLABS_VOICE_ID")),
		ElevenLabsBaseURL: getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		TTSModel:          getEnvOrDefault("TTS_MODEL", "eleven_monolingual_v1"),
		TTSStability:      stability,
		TTSSimilarity:     similarity,
		Timeout:           time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// StoreConfig locates the catalog data files and the record directories.
type StoreConfig struct {
	DataDir    string
	RecordsDir string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{
		DataDir:    getEnvOrDefault("STORE_DATA_DIR", "data"),
		RecordsDir: getEnvOrDefault("RECORDS_DIR", "records"),
	}
}

// LogConfig controls the file/console logger.
type LogConfig struct {
	File    string
	Level   string
	Console bool
}

func loadLogConfig() LogConfig {
	console := true
	if raw := strings.TrimSpace(os.Getenv("LOG_CONSOLE")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			console = parsed
		}
	}

	return LogConfig{
		File:    getEnvOrDefault("LOG_FILE", "logs/ovc.log"),
		Level:   getEnvOrDefault("LOG_LEVEL", "info"),
		Console: console,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalFloat32Env(key string) (*float32, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	result := float32(val)
	return &result, nil
}
