package ai

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/ovc-dev/ovc/backend/internal/config"
	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
	"github.com/ovc-dev/ovc/backend/internal/model/conversation"
)

func TestBuildSystemPromptIncludesProfile(t *testing.T) {
	prompt := BuildSystemPrompt(catalog.Profile{
		StoreName:         "OVC Outfitters",
		StoreDescription:  "Gear for every trail.",
		ProductCategories: []string{"electronics", "outdoor"},
	})

	for _, want := range []string{"OVC Outfitters", "Gear for every trail.", "electronics, outdoor"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q: %s", want, prompt)
		}
	}
}

func TestBuildSystemPromptEmptyProfile(t *testing.T) {
	prompt := BuildSystemPrompt(catalog.Profile{})
	if !strings.Contains(prompt, "assistant for the store.") {
		t.Fatalf("expected generic store fallback, got: %s", prompt)
	}
}

func TestBuildHistoryMessagesTrimsToLimit(t *testing.T) {
	r := &Responder{cfg: config.AIConfig{HistoryLimit: 2}}

	history := []conversation.Turn{
		{Role: conversation.RoleUser, Content: "first"},
		{Role: conversation.RoleAssistant, Content: "second"},
		{Role: conversation.RoleUser, Content: "third"},
	}

	messages := r.buildHistoryMessages(history)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Content != "second" || messages[1].Content != "third" {
		t.Fatalf("kept wrong turns: %s, %s", messages[0].Content, messages[1].Content)
	}
}

func TestBuildHistoryMessagesMapsRoles(t *testing.T) {
	r := &Responder{cfg: config.AIConfig{HistoryLimit: 10}}

	messages := r.buildHistoryMessages([]conversation.Turn{
		{Role: conversation.RoleUser, Content: "hi"},
		{Role: conversation.RoleAssistant, Content: "hello"},
		{Role: "system", Content: "ignored"},
	})

	if len(messages) != 2 {
		t.Fatalf("expected unknown roles to be dropped, got %d messages", len(messages))
	}
	if messages[0].Role != schema.User || messages[1].Role != schema.Assistant {
		t.Fatalf("unexpected roles: %s, %s", messages[0].Role, messages[1].Role)
	}
}
