package assistant

import (
	"context"
	"errors"
	"testing"

	"city-samadhan/logger"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchPrecedence(t *testing.T) {
	testCases := []struct {
		query string
		topic string
	}{
		{"How do I use this app?", "app_usage"},
		{"I want to report a pothole", "report_issue"},
		{"upload photos", "report_issue"},
		{"what is the status of my complaint", "track_status"},
		{"can I vote?", "nearby"},
		{"change account settings", "profile"},
		{"garbage everywhere", "waste"},
		{"road is broken", "roads"},
		{"no light at night", "streetlights"},
		{"pipeline burst", "water"},
		{"drain is choked", "sewage"},
		{"playground swings broken", "parks"},
		{"who gets assigned", "departments"},
		{"can I write in Hindi", "language"},
		{"take me home", "home"},
		{"show my issues", "my_reports"},
		// "reports" contains "report", so the earlier rule wins
		{"my reports", "report_issue"},
		// roads come before water
		{"road flooded with water", "roads"},
	}

	for _, tc := range testCases {
		t.Run(tc.query, func(t *testing.T) {
			_, topic, ok := Match(tc.query)
			require.True(t, ok)
			assert.Equal(t, tc.topic, topic)
		})
	}
}

func TestMatchFallback(t *testing.T) {
	text, topic, ok := Match("bonjour")
	assert.False(t, ok)
	assert.Empty(t, topic)
	assert.Equal(t, Fallback, text)
}

type fakeCompleter struct {
	reply string
	err   error
	reqs  []openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  " + f.reply + "\n"}},
	}}, nil
}

func TestAnswer(t *testing.T) {
	t.Run("rules win over the model", func(t *testing.T) {
		fc := &fakeCompleter{reply: "model"}
		a := New(fc, "gpt-4o-mini", logger.Discard())

		reply := a.Answer(context.Background(), "garbage")
		assert.Equal(t, SourceRules, reply.Source)
		assert.Equal(t, wasteManagement, reply.Text)
		assert.Empty(t, fc.reqs)
	})

	t.Run("model answers unmatched questions", func(t *testing.T) {
		fc := &fakeCompleter{reply: "Mosquito breeding is handled by sanitation."}
		a := New(fc, "gpt-4o-mini", logger.Discard())

		reply := a.Answer(context.Background(), "mosquitoes near the lake")
		assert.Equal(t, SourceModel, reply.Source)
		assert.Equal(t, "Mosquito breeding is handled by sanitation.", reply.Text)
		require.Len(t, fc.reqs, 1)
		assert.Equal(t, "gpt-4o-mini", fc.reqs[0].Model)
	})

	t.Run("model failure falls back", func(t *testing.T) {
		a := New(&fakeCompleter{err: errors.New("429")}, "gpt-4o-mini", logger.Discard())

		reply := a.Answer(context.Background(), "mosquitoes")
		assert.Equal(t, SourceFallback, reply.Source)
		assert.Equal(t, Fallback, reply.Text)
	})

	t.Run("no model configured", func(t *testing.T) {
		a := New(nil, "", logger.Discard())

		reply := a.Answer(context.Background(), "mosquitoes")
		assert.Equal(t, SourceFallback, reply.Source)
	})
}
