package lessons

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/stategraph/internal/ctxlog"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

var helloSchema = state.MustSchema(
	state.TextField("message"),
	state.IntField("counter"),
)

// HelloResult is the decoded final state of the hello lesson.
type HelloResult struct {
	Message string `state:"message"`
	Counter int    `state:"counter"`
}

var helloLesson = Lesson{
	Name:  "hello",
	Title: "A first linear graph",
	Samples: []Sample{
		{Name: "default", Input: map[string]any{"message": "", "counter": 0}},
	},
	build:  buildHello,
	report: reportHello,
}

func buildHello(opts ...state.GraphOption) (*state.CompiledGraph, error) {
	return newBuilder("hello", helloSchema, opts...).
		node("welcome", state.NewFunctionNode(welcome)).
		node("info", state.NewFunctionNode(info)).
		node("farewell", state.NewFunctionNode(farewell)).
		entry("welcome").
		edge("welcome", "info").
		edge("info", "farewell").
		edge("farewell", state.End).
		compile()
}

func welcome(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("executing node", "node", "welcome")
	return state.Update{
		"message": "Welcome to state graphs!",
		"counter": s.Int("counter") + 1,
	}, nil
}

func info(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("executing node", "node", "info")
	return state.Update{
		"message": s.Text("message") + " This is a simple graph.",
		"counter": s.Int("counter") + 1,
	}, nil
}

func farewell(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("executing node", "node", "farewell")
	return state.Update{
		"message": s.Text("message") + " See you soon!",
		"counter": s.Int("counter") + 1,
	}, nil
}

func reportHello(s state.State) (string, error) {
	var r HelloResult
	if err := s.Decode(&r); err != nil {
		return "", err
	}
	return fmt.Sprintf("Message: %s\nNodes executed: %d", r.Message, r.Counter), nil
}
