package chat

import (
	"fmt"
	"strings"

	"taverna/internal/models"
)

const persona = `You are the friendly host of Taverna, a Greek restaurant. Help guests choose dishes from the menu below, answer questions about ingredients, allergens and dietary needs, and keep replies short and warm. Only recommend items that appear on the menu.`

const markerInstruction = `When you recommend menu items, end your reply with a final line of the form [ITEM_IDS:id1,id2] listing the numeric ids of every recommended item. Omit the line when you recommend nothing.`

// BuildPrompt renders the single text prompt sent to the completion service
func BuildPrompt(history []models.ChatMessage, catalog, userText string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\nMENU (id | name | category | price | description):\n")
	b.WriteString(catalog)

	if len(history) > 0 {
		b.WriteString("\nCONVERSATION SO FAR:\n")
		for _, m := range history {
			if m.IsLoading {
				continue
			}
			fmt.Fprintf(&b, "%s: %s\n", speaker(m.Sender), m.Text)
		}
	}

	fmt.Fprintf(&b, "\nGuest: %s\n\n%s\n", userText, markerInstruction)
	return b.String()
}

func speaker(s models.Sender) string {
	if s == models.SenderUser {
		return "Guest"
	}
	return "Host"
}
