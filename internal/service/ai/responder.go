// Package ai implements the free-form responder on top of an eino
// prompt/chat-model chain.
package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/ovc-dev/ovc/backend/internal/config"
	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/model/conversation"
	"github.com/ovc-dev/ovc/backend/internal/service/dialog"
)

// Responder answers free-form turns through the configured chat model.
type Responder struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
	system    string
	chain     compose.Runnable[map[string]any, *schema.Message]
	log       *zap.Logger
}

// NewResponder compiles the prompt/model chain for the store profile.
func NewResponder(ctx context.Context, profile catalog.Profile, cfg config.AIConfig, log *zap.Logger) (*Responder, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}

	return &Responder{
		chatModel: chatModel,
		cfg:       cfg,
		system:    BuildSystemPrompt(profile),
		chain:     runnable,
		log:       log,
	}, nil
}

// StreamingEnabled reports whether replies stream token by token.
func (r *Responder) StreamingEnabled() bool {
	return r.cfg.StreamResponse
}

// Generate produces a complete reply in one call.
func (r *Responder) Generate(ctx context.Context, history []conversation.Turn, utterance string) (string, error) {
	input := r.buildChainInput(history, utterance)

	response, err := r.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	r.log.Debug("free-form reply generated", zap.Int("length", len(response.Content)))
	return response.Content, nil
}

// StreamReply streams reply fragments as the model emits them.
func (r *Responder) StreamReply(ctx context.Context, history []conversation.Turn, utterance string) (dialog.TokenStream, error) {
	if !r.StreamingEnabled() {
		return nil, fmt.Errorf("streaming disabled in configuration")
	}

	input := r.buildChainInput(history, utterance)

	stream, err := r.chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to stream chat chain output: %w", err)
	}

	return &tokenStream{stream: stream}, nil
}

func (r *Responder) buildChainInput(history []conversation.Turn, utterance string) map[string]any {
	return map[string]any{
		"system":  r.system,
		"history": r.buildHistoryMessages(history),
		"query":   utterance,
	}
}

func (r *Responder) buildHistoryMessages(history []conversation.Turn) []*schema.Message {
	if len(history) == 0 {
		return nil
	}

	startIdx := 0
	if limit := r.cfg.HistoryLimit; limit > 0 && len(history) > limit {
		startIdx = len(history) - limit
	}

	messages := make([]*schema.Message, 0, len(history)-startIdx)
	for _, turn := range history[startIdx:] {
		switch turn.Role {
		case conversation.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case conversation.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}

	return messages
}

// tokenStream adapts the eino stream to the engine's TokenStream. Empty
// chunks are skipped so consumers only see text.
type tokenStream struct {
	stream *schema.StreamReader[*schema.Message]
}

func (s *tokenStream) Recv() (string, error) {
	for {
		chunk, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		return chunk.Content, nil
	}
}

func (s *tokenStream) Close() {
	s.stream.Close()
}
