package lessons

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/stategraph/internal/ctxlog"
	"github.com/tailored-agentic-units/stategraph/orchestrate/state"
)

// Credit score thresholds and employment values used by the loan router.
const (
	ApproveScore = 700
	RejectScore  = 600

	Employed   = "employed"
	Unemployed = "unemployed"
)

// Loan decisions.
const (
	DecisionApproved     = "approved"
	DecisionRejected     = "rejected"
	DecisionManualReview = "manual_review"
)

var loanSchema = state.MustSchema(
	state.TextField("applicant_name"),
	state.RealField("requested_amount"),
	state.IntField("credit_score"),
	state.TextField("employment_status"),
	state.TextField("decision"),
	state.TextField("reason"),
)

// LoanResult is the decoded final state of the loan lesson.
type LoanResult struct {
	Applicant string  `state:"applicant_name"`
	Amount    float64 `state:"requested_amount"`
	Score     int     `state:"credit_score"`
	Decision  string  `state:"decision"`
	Reason    string  `state:"reason"`
}

var loanLesson = Lesson{
	Name:  "loan",
	Title: "Conditional routing on a credit score",
	Samples: []Sample{
		{Name: "approve", Input: loanApplication("Juan Pérez", 10000, 750, Employed)},
		{Name: "low-score", Input: loanApplication("Ana García", 15000, 550, Employed)},
		{Name: "borderline", Input: loanApplication("Carlos López", 8000, 650, Employed)},
		{Name: "unemployed", Input: loanApplication("María Torres", 5000, 720, Unemployed)},
	},
	build:  buildLoan,
	report: reportLoan,
}

func loanApplication(name string, amount float64, score int, employment string) map[string]any {
	return map[string]any{
		"applicant_name":    name,
		"requested_amount":  amount,
		"credit_score":      score,
		"employment_status": employment,
	}
}

func buildLoan(opts ...state.GraphOption) (*state.CompiledGraph, error) {
	return newBuilder("loan", loanSchema, opts...).
		node("validate", state.NewFunctionNode(validateApplication)).
		node("check_score", state.NewFunctionNode(checkCreditScore)).
		node("approve", state.NewFunctionNode(approveLoan)).
		node("reject", state.NewFunctionNode(rejectLoan)).
		node("manual_review", state.NewFunctionNode(manualReview)).
		entry("validate").
		edge("validate", "check_score").
		route("check_score", RouteByCreditScore, map[string]string{
			"approve":       "approve",
			"reject":        "reject",
			"manual_review": "manual_review",
		}).
		edge("approve", state.End).
		edge("reject", state.End).
		edge("manual_review", state.End).
		compile()
}

// RouteByCreditScore picks the loan outcome: unemployed applicants are
// rejected outright, then the score decides between approve, reject and
// manual_review.
func RouteByCreditScore(s state.State) string {
	if s.Text("employment_status") == Unemployed {
		return "reject"
	}
	score := s.Int("credit_score")
	switch {
	case score >= ApproveScore:
		return "approve"
	case score < RejectScore:
		return "reject"
	default:
		return "manual_review"
	}
}

func validateApplication(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("validating application",
		"node", "validate",
		"applicant", s.Text("applicant_name"),
		"amount", s.Real("requested_amount"),
		"score", s.Int("credit_score"),
		"employment", s.Text("employment_status"),
	)
	return nil, nil
}

func checkCreditScore(ctx context.Context, s state.State) (state.Update, error) {
	score := s.Int("credit_score")
	band := "low"
	switch {
	case score >= ApproveScore:
		band = "excellent"
	case score >= RejectScore:
		band = "acceptable"
	}
	ctxlog.FromContext(ctx).Debug("evaluated credit score", "node", "check_score", "score", score, "band", band)
	return nil, nil
}

func approveLoan(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("loan approved", "node", "approve", "amount", s.Real("requested_amount"))
	return state.Update{
		"decision": DecisionApproved,
		"reason":   "meets all requirements",
	}, nil
}

func rejectLoan(ctx context.Context, s state.State) (state.Update, error) {
	reason := "insufficient credit score"
	if s.Text("employment_status") == Unemployed {
		reason = "no verifiable employment"
	}
	ctxlog.FromContext(ctx).Debug("loan rejected", "node", "reject", "reason", reason)
	return state.Update{
		"decision": DecisionRejected,
		"reason":   reason,
	}, nil
}

func manualReview(ctx context.Context, s state.State) (state.Update, error) {
	ctxlog.FromContext(ctx).Debug("manual review required", "node", "manual_review")
	return state.Update{
		"decision": DecisionManualReview,
		"reason":   "borderline case requires analyst review",
	}, nil
}

func reportLoan(s state.State) (string, error) {
	var r LoanResult
	if err := s.Decode(&r); err != nil {
		return "", err
	}
	return fmt.Sprintf("Applicant: %s\nAmount: $%.2f\nDecision: %s\nReason: %s",
		r.Applicant, r.Amount, r.Decision, r.Reason), nil
}
