package evaluation

import (
	"math"

	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/event"
)

// Outcome is the article-level result derived from the evaluations of the
// current version. IsComplete is false while the round is still short of the
// required number of evaluations.
type Outcome struct {
	Status     article.Status
	FinalGrade float64
	IsComplete bool
}

// Aggregate folds the evaluations of one article version into an Outcome,
// per the event's evaluation type.
//
// DIRECT adopts the single decision verbatim. PAIR adopts a unanimous
// decision; any disagreement resolves to TO_CORRECTION unless both rejected.
// PANEL adopts a strict majority decision and falls back to TO_CORRECTION
// when there is none. The final grade is the arithmetic mean of all grades,
// rounded half-up to one decimal. The result does not depend on the order
// evaluations were submitted in.
func Aggregate(evt event.Event, evals []Evaluation) (Outcome, error) {
	required, err := evt.RequiredEvaluations()
	if err != nil {
		return Outcome{}, err
	}
	if len(evals) < required {
		return Outcome{Status: article.StatusInEvaluation}, nil
	}

	var approved, rejected, toCorrection int
	var sum float64
	for _, ev := range evals {
		sum += ev.Grade
		switch ev.Decision {
		case DecisionApproved:
			approved++
		case DecisionRejected:
			rejected++
		default:
			toCorrection++
		}
	}
	grade := roundGrade(sum / float64(len(evals)))

	out := Outcome{FinalGrade: grade, IsComplete: true}
	switch evt.EvaluationType {
	case event.EvaluationDirect:
		out.Status = evals[0].Decision.ArticleStatus()
	case event.EvaluationPair:
		switch {
		case rejected == len(evals):
			out.Status = article.StatusRejected
		case approved == len(evals):
			out.Status = article.StatusApproved
		default:
			out.Status = article.StatusToCorrection
		}
	case event.EvaluationPanel:
		majority := len(evals) / 2
		switch {
		case approved > majority:
			out.Status = article.StatusApproved
		case rejected > majority:
			out.Status = article.StatusRejected
		default:
			out.Status = article.StatusToCorrection
		}
	}
	return out, nil
}

// roundGrade rounds half-up to one decimal (6.95 -> 7.0, not banker's).
func roundGrade(g float64) float64 {
	return math.Floor(g*10+0.5) / 10
}
