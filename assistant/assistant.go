package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

type rule struct {
	topic    string
	matches  func(q string) bool
	response string
}

func anyOf(words ...string) func(string) bool {
	return func(q string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
}

func allOf(words ...string) func(string) bool {
	return func(q string) bool {
		for _, w := range words {
			if !strings.Contains(q, w) {
				return false
			}
		}
		return true
	}
}

// rules are evaluated in order; the first match wins. Order matters: a
// question about "reporting a pothole" is answered with how to report.
var rules = []rule{
	{"app_usage", allOf("how", "use"), appUsageGeneral},
	{"report_issue", anyOf("report", "upload", "new issue"), reportIssue},
	{"track_status", anyOf("track", "status", "progress"), trackStatus},
	{"nearby", anyOf("nearby", "vote"), nearbyIssues},
	{"profile", anyOf("profile", "account", "settings"), profile},
	{"waste", anyOf("waste", "garbage", "trash"), wasteManagement},
	{"roads", anyOf("road", "pothole", "street condition"), roadsAndPotholes},
	{"streetlights", anyOf("streetlight", "light", "dark street"), streetlights},
	{"water", anyOf("water", "pipeline", "supply"), waterSupply},
	{"sewage", anyOf("sewage", "drain", "drainage"), sewageAndDrainage},
	{"parks", anyOf("park", "garden", "playground"), publicParks},
	{"departments", anyOf("department", "assign"), departments},
	{"language", anyOf("language", "hindi", "english"), language},
	{"home", anyOf("home"), navHome},
	{"my_reports", anyOf("reports", "my issues"), navMyReports},
}

// Match returns the canned answer for query and the topic it matched.
func Match(query string) (response, topic string, ok bool) {
	q := strings.ToLower(query)
	for _, r := range rules {
		if r.matches(q) {
			return r.response, r.topic, true
		}
	}
	return Fallback, "", false
}

// Completer is the part of the OpenAI client the assistant uses.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Reply struct {
	Text   string `json:"text"`
	Topic  string `json:"topic,omitempty"`
	Source string `json:"source"`
}

const (
	SourceRules    = "rules"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

type Assistant struct {
	completer Completer
	model     string
	log       logrus.FieldLogger
}

// New builds an Assistant. completer may be nil, in which case unmatched
// questions get the fallback text.
func New(completer Completer, model string, log logrus.FieldLogger) *Assistant {
	return &Assistant{completer: completer, model: model, log: log}
}

func (a *Assistant) Answer(ctx context.Context, query string) Reply {
	if text, topic, ok := Match(query); ok {
		return Reply{Text: text, Topic: topic, Source: SourceRules}
	}
	if a.completer == nil || strings.TrimSpace(query) == "" {
		return Reply{Text: Fallback, Source: SourceFallback}
	}

	text, err := a.complete(ctx, query)
	if err != nil {
		a.log.WithError(err).Warn("Assistant model call failed, using fallback")
		return Reply{Text: Fallback, Source: SourceFallback}
	}
	return Reply{Text: text, Source: SourceModel}
}

func (a *Assistant) complete(ctx context.Context, query string) (string, error) {
	resp, err := a.completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You are the help assistant of City Samadhan, an app where citizens report civic issues " +
					"(waste, roads, street lights, water supply, sanitation, sewage and drainage), track their status " +
					"and vote on nearby issues. Answer in at most three short sentences. If the question is not about " +
					"the app or civic issues, say you can only help with City Samadhan.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: query,
			},
		},
		MaxTokens:   150,
		N:           1,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("openai returned empty response or choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
