package ai

import (
	"fmt"
	"strings"

	"github.com/ovc-dev/ovc/backend/internal/model/catalog"
)

// BuildSystemPrompt frames the model as the store's customer-service
// assistant, seeded with the store profile.
func BuildSystemPrompt(profile catalog.Profile) string {
	var b strings.Builder

	name := strings.TrimSpace(profile.StoreName)
	if name == "" {
		name = "the store"
	}
	fmt.Fprintf(&b, "You are a helpful customer service assistant for %s.", name)

	if desc := strings.TrimSpace(profile.StoreDescription); desc != "" {
		b.WriteString(" ")
		b.WriteString(desc)
	}

	if len(profile.ProductCategories) > 0 {
		fmt.Fprintf(&b, " The store carries %s.", strings.Join(profile.ProductCategories, ", "))
	}

	b.WriteString(" Keep replies short and conversational. Orders and meeting bookings run through the structured flow, so never invent confirmations or schedules.")
	return b.String()
}
