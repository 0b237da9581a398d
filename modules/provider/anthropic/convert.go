package anthropic

import (
	"strings"

	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/confidant-ai/confidant/internal/provider"
)

// buildParams converts a companion request into Anthropic SDK parameters.
// Persona, remembered facts, and mood go into the dedicated System field;
// the Messages API does not accept inline system messages.
func (p *Provider) buildParams(req provider.Request) sdkanthropic.MessageNewParams {
	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(p.config.Model),
		Messages: convertMessages(req.Messages),
	}

	if system := systemPrompt(p.config.Persona, req.Facts, req.Mood); system != "" {
		params.System = []sdkanthropic.TextBlockParam{{Text: system}}
	}

	params.MaxTokens = int64(p.config.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}

	return params
}

func systemPrompt(persona, facts, mood string) string {
	var b strings.Builder
	if persona != "" {
		b.WriteString(persona)
	}
	if facts != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("Things you remember about the user: ")
		b.WriteString(facts)
	}
	if mood != "" {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("The user's current mood: ")
		b.WriteString(mood)
	}
	return b.String()
}

func convertMessages(msgs []provider.Message) []sdkanthropic.MessageParam {
	result := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		block := sdkanthropic.NewTextBlock(msg.Content)
		if msg.Role == provider.MessageRoleAssistant {
			result = append(result, sdkanthropic.NewAssistantMessage(block))
		} else {
			result = append(result, sdkanthropic.NewUserMessage(block))
		}
	}
	return result
}

// textOf flattens a response message's text blocks into one string.
func textOf(msg *sdkanthropic.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(tb.Text)
		}
	}
	return b.String()
}
