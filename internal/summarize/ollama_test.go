package summarize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"scribeflow/internal/domain"
)

type fakeModel struct {
	response string
	err      error
	messages []llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return m.response, m.err
}

func labeledResult() domain.AlignmentResult {
	return domain.AlignmentResult{
		Chunks: []domain.AlignedChunk{
			{Start: 0, End: 3, Text: "Hello there How are you", SpeakerID: "SpeakerA"},
			{Start: 3, End: 5, Text: "I am fine", SpeakerID: "SpeakerB"},
		},
	}
}

func TestSummarize(t *testing.T) {
	m := &fakeModel{response: "  Two people exchanged greetings.  "}
	s := NewWithModel(m)

	summary, err := s.Summarize(context.Background(), labeledResult())
	require.NoError(t, err)
	assert.Equal(t, "Two people exchanged greetings.", summary)

	require.Len(t, m.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, m.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, m.messages[1].Role)
}

func TestSummarizeModelError(t *testing.T) {
	s := NewWithModel(&fakeModel{err: errors.New("connection refused")})

	_, err := s.Summarize(context.Background(), labeledResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate summary")
}

func TestSummarizeEmptyResponse(t *testing.T) {
	s := NewWithModel(&fakeModel{response: "   "})

	_, err := s.Summarize(context.Background(), labeledResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty response")
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	s := NewWithModel(&fakeModel{response: "irrelevant"})

	_, err := s.Summarize(context.Background(), domain.AlignmentResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to summarize")
}

func TestPromptText(t *testing.T) {
	result := labeledResult()
	result.Chunks = append(result.Chunks, domain.AlignedChunk{Start: 5, End: 6, Text: "unlabeled remark"})
	result.Chunks = append(result.Chunks, domain.AlignedChunk{Start: 6, End: 7, Text: "   "})

	text := promptText(result)
	assert.Equal(t,
		"SpeakerA: Hello there How are you\nSpeakerB: I am fine\nunlabeled remark",
		text)
}
