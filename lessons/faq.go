package lessons

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/stategraph/internal/ctxlog"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

// UnknownTopic is the topic assigned to queries that match no keyword.
const UnknownTopic = "unknown"

//go:embed faq.yaml
var faqSource []byte

// Topic is one entry of the FAQ knowledge base.
type Topic struct {
	Name     string   `yaml:"name"`
	Question string   `yaml:"question"`
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

// KnowledgeBase holds the FAQ topics in classification order and the
// response given when nothing matches.
type KnowledgeBase struct {
	Fallback string  `yaml:"fallback"`
	Topics   []Topic `yaml:"topics"`
}

// ParseKnowledgeBase decodes a YAML knowledge base.
func ParseKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if len(kb.Topics) == 0 {
		return nil, fmt.Errorf("knowledge base has no topics")
	}
	for _, t := range kb.Topics {
		if t.Name == "" || t.Name == UnknownTopic {
			return nil, fmt.Errorf("invalid topic name %q", t.Name)
		}
		if len(t.Keywords) == 0 {
			return nil, fmt.Errorf("topic %s has no keywords", t.Name)
		}
	}
	return &kb, nil
}

// Classify returns the first topic with a keyword contained in query, or
// UnknownTopic.
func (kb *KnowledgeBase) Classify(query string) string {
	q := strings.ToLower(query)
	for _, t := range kb.Topics {
		for _, k := range t.Keywords {
			if strings.Contains(q, strings.ToLower(k)) {
				return t.Name
			}
		}
	}
	return UnknownTopic
}

// Answer looks up the answer for a topic.
func (kb *KnowledgeBase) Answer(topic string) (string, bool) {
	for _, t := range kb.Topics {
		if t.Name == topic {
			return t.Answer, true
		}
	}
	return "", false
}

var defaultKB = sync.OnceValues(func() (*KnowledgeBase, error) {
	return ParseKnowledgeBase(faqSource)
})

// DefaultKnowledgeBase returns the embedded knowledge base.
func DefaultKnowledgeBase() (*KnowledgeBase, error) {
	return defaultKB()
}

var faqSchema = state.MustSchema(
	state.TextField("user_query"),
	state.TextField("identified_topic"),
	state.TextField("response"),
	state.BoolField("found_answer"),
)

// FAQResult is the decoded final state of the faq lesson.
type FAQResult struct {
	Query    string `state:"user_query"`
	Topic    string `state:"identified_topic"`
	Response string `state:"response"`
	Found    bool   `state:"found_answer"`
}

var faqLesson = Lesson{
	Name:  "faq",
	Title: "Keyword FAQ agent over an embedded knowledge base",
	Samples: []Sample{
		{Name: "requirements", Input: map[string]any{"user_query": "What documents do I need for a loan?"}},
		{Name: "rates", Input: map[string]any{"user_query": "What is the interest rate?"}},
		{Name: "timing", Input: map[string]any{"user_query": "How long does it take to approve my application?"}},
		{Name: "payments", Input: map[string]any{"user_query": "How can I pay my loan?"}},
		{Name: "unknown", Input: map[string]any{"user_query": "What are your office hours?"}},
	},
	build:  buildFAQ,
	report: reportFAQ,
}

func buildFAQ(opts ...state.GraphOption) (*state.CompiledGraph, error) {
	kb, err := DefaultKnowledgeBase()
	if err != nil {
		return nil, err
	}
	return BuildFAQ(kb, opts...)
}

// BuildFAQ compiles the FAQ graph over a caller-supplied knowledge base.
func BuildFAQ(kb *KnowledgeBase, opts ...state.GraphOption) (*state.CompiledGraph, error) {
	return newBuilder("faq", faqSchema, opts...).
		node("classify", classifyQuestion(kb)).
		node("retrieve", retrieveAnswer(kb)).
		node("unknown", handleUnknown(kb)).
		entry("classify").
		route("classify",
			state.When(state.KeyEquals("found_answer", true), "retrieve", "unknown"),
			map[string]string{
				"retrieve": "retrieve",
				"unknown":  "unknown",
			}).
		edge("retrieve", state.End).
		edge("unknown", state.End).
		compile()
}

func classifyQuestion(kb *KnowledgeBase) state.Node {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
		topic := kb.Classify(s.Text("user_query"))
		ctxlog.FromContext(ctx).Debug("classified question", "node", "classify", "topic", topic)
		return state.Update{
			"identified_topic": topic,
			"found_answer":     topic != UnknownTopic,
		}, nil
	})
}

func retrieveAnswer(kb *KnowledgeBase) state.Node {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
		topic := s.Text("identified_topic")
		answer, ok := kb.Answer(topic)
		if !ok {
			return nil, fmt.Errorf("no answer for topic %s", topic)
		}
		ctxlog.FromContext(ctx).Debug("retrieved answer", "node", "retrieve", "topic", topic)
		return state.Update{"response": answer}, nil
	})
}

func handleUnknown(kb *KnowledgeBase) state.Node {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.Update, error) {
		ctxlog.FromContext(ctx).Debug("question not recognized", "node", "unknown")
		return state.Update{"response": kb.Fallback}, nil
	})
}

func reportFAQ(s state.State) (string, error) {
	var r FAQResult
	if err := s.Decode(&r); err != nil {
		return "", err
	}
	return fmt.Sprintf("Question: %s\nTopic: %s\n\n%s", r.Query, r.Topic, r.Response), nil
}
