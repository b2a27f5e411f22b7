package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"scribeflow/internal/domain"
)

const systemPrompt = "You summarize transcripts of recorded speech. " +
	"Produce a concise summary with the key points, decisions, and action items. " +
	"When speaker labels are present, attribute points to their speakers."

// Summarizer produces a prose summary of an aligned transcript through a
// local ollama model.
type Summarizer struct {
	llm llms.Model
}

// New connects to an ollama server. serverURL may be empty for the default
// local endpoint.
func New(serverURL, model string) (*Summarizer, error) {
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("connect ollama: %w", err)
	}
	return &Summarizer{llm: llm}, nil
}

// NewWithModel constructs a summarizer over any llms.Model; tests pass a fake.
func NewWithModel(m llms.Model) *Summarizer {
	return &Summarizer{llm: m}
}

// Summarize renders the aligned transcript as prompt text and asks the
// model for a summary.
func (s *Summarizer) Summarize(ctx context.Context, result domain.AlignmentResult) (string, error) {
	transcript := promptText(result)
	if transcript == "" {
		return "", fmt.Errorf("nothing to summarize")
	}

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			"Here is the transcript to summarize:\n\n"+transcript),
	}

	resp, err := s.llm.GenerateContent(ctx, content)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return strings.TrimSpace(resp.Choices[0].Content), nil
}

// promptText flattens the aligned chunks into speaker-labeled lines.
func promptText(result domain.AlignmentResult) string {
	var b strings.Builder
	for _, c := range result.Chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if c.SpeakerID != "" {
			fmt.Fprintf(&b, "%s: %s\n", c.SpeakerID, text)
		} else {
			b.WriteString(text + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}
