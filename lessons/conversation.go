package lessons

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/stategraph/internal/ctxlog"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

// AdultAge is the minimum age for eligibility in the conversation lesson.
const AdultAge = 18

var conversationSchema = state.MustSchema(
	state.AppendField("messages"),
	state.TextField("user_name"),
	state.IntField("turn_count"),
	state.IntField("user_age"),
)

// ConversationResult is the decoded final state of the conversation lesson.
type ConversationResult struct {
	Messages  []string `state:"messages"`
	UserName  string   `state:"user_name"`
	TurnCount int      `state:"turn_count"`
	UserAge   int      `state:"user_age"`
}

var conversationLesson = Lesson{
	Name:  "conversation",
	Title: "Shared state with an append-only message log",
	Samples: []Sample{
		{Name: "minor", Input: map[string]any{"user_name": "María", "user_age": 17}},
		{Name: "adult", Input: map[string]any{"user_name": "Carlos", "user_age": 34}},
	},
	build:  buildConversation,
	report: reportConversation,
}

func buildConversation(opts ...state.GraphOption) (*state.CompiledGraph, error) {
	return newBuilder("conversation", conversationSchema, opts...).
		node("greet", state.NewFunctionNode(greetUser)).
		node("check_age", state.NewFunctionNode(checkAge)).
		node("ask", state.NewFunctionNode(askQuestion)).
		node("summarize", state.NewFunctionNode(summarizeConversation)).
		entry("greet").
		edge("greet", "check_age").
		edge("check_age", "ask").
		edge("ask", "summarize").
		edge("summarize", state.End).
		compile()
}

func say(s state.State, msg string) state.Update {
	return state.Update{
		"messages":   []string{msg},
		"turn_count": s.Int("turn_count") + 1,
	}
}

func greetUser(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("greeting user", "node", "greet", "user", s.Text("user_name"))
	return say(s, fmt.Sprintf("Hello %s! Welcome to Kualtos.", s.Text("user_name"))), nil
}

func checkAge(ctx context.Context, s state.State) (state.Update, error) {
	age := s.Int("user_age")
	ctxlog.FromContext(ctx).Debug("checking age", "node", "check_age", "age", age)
	if age >= AdultAge {
		return say(s, "You are eligible for our services."), nil
	}
	return say(s, fmt.Sprintf("You must be at least %d years old.", AdultAge)), nil
}

func askQuestion(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("asking question", "node", "ask", "messages", len(s.TextList("messages")))
	return say(s, "How can I help you today?"), nil
}

func summarizeConversation(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("summarizing", "node", "summarize")
	return say(s, fmt.Sprintf("Conversation with %s completed in %d turns.",
		s.Text("user_name"), s.Int("turn_count"))), nil
}

func reportConversation(s state.State) (string, error) {
	var r ConversationResult
	if err := s.Decode(&r); err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User: %s\nTurns: %d\nMessages (%d):", r.UserName, r.TurnCount, len(r.Messages))
	for i, m := range r.Messages {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, m)
	}
	return sb.String(), nil
}
