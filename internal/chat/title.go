package chat

import (
	"context"
	"strings"
	"time"

	"github.com/attune-oss/attune/internal/provider"
)

const titlePrompt = `Given a single sentence, summarize its core message in no more than 5 words. Use plain English, no punctuation, no extra commentary. Do not add new information. If the input is already 5 words or fewer, return it unchanged. Output only the summary.`

// summarizeTitle names an untitled conversation from its first user message.
// It runs concurrently with the streaming turn; the write is first-one-wins,
// so a racing turn on the same conversation cannot overwrite the title.
func (o *Orchestrator) summarizeTitle(conversationID, firstMessage string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	resp, err := o.provider.Complete(ctx, &provider.CompletionRequest{
		Model:     o.opts.Model,
		System:    titlePrompt,
		Messages:  []provider.Message{{Role: "user", Content: firstMessage}},
		MaxTokens: 64,
	})
	if err != nil {
		o.logger.Warn("title summarization failed", "conversation_id", conversationID, "error", err)
		return
	}

	title := strings.TrimSpace(resp.Content)
	if title == "" {
		return
	}

	won, err := o.store.SetConversationTitle(conversationID, title)
	if err != nil {
		o.logger.Warn("title save failed", "conversation_id", conversationID, "error", err)
		return
	}
	if won {
		o.logger.Debug("conversation titled", "conversation_id", conversationID, "title", title)
	}
}
