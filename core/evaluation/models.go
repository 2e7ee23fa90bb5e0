package evaluation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/article"
)

// Decision is one evaluator's verdict on one article version.
type Decision string

const (
	DecisionApproved     Decision = "APPROVED"
	DecisionToCorrection Decision = "TO_CORRECTION"
	DecisionRejected     Decision = "REJECTED"
)

// ArticleStatus maps a unanimous/majority decision to the article-level status.
func (d Decision) ArticleStatus() article.Status {
	switch d {
	case DecisionApproved:
		return article.StatusApproved
	case DecisionRejected:
		return article.StatusRejected
	default:
		return article.StatusToCorrection
	}
}

// Grade bounds (inclusive).
const (
	GradeMin = 0.0
	GradeMax = 10.0
)

// Evaluation is one evaluator's judgment of one article version.
// It is unique on (EvaluatorID, ArticleVersionID): resubmission overwrites,
// never duplicates. A draft is a work-in-progress evaluation that never
// counts toward the round until it is submitted.
type Evaluation struct {
	ID               string              `json:"id"`
	EvaluatorID      string              `json:"evaluator_id"`
	ArticleVersionID string              `json:"article_version_id"`
	Grade            float64             `json:"grade"`
	Decision         Decision            `json:"status"`
	Comments         string              `json:"evaluation_description,omitempty"`
	IsDraft          bool                `json:"is_draft"`
	SubmittedAt      time.Time           `json:"submitted_at"` // UTC
	CreatedAt        time.Time           `json:"created_at"`   // UTC
	UpdatedAt        time.Time           `json:"updated_at"`   // UTC
	Responses        []ChecklistResponse `json:"checklist_responses,omitempty"`
}

// ChecklistResponse is one validated answer to one checklist question within
// one evaluation. Exactly one of the three response kinds is set.
type ChecklistResponse struct {
	ID              string    `json:"id,omitempty"`
	QuestionID      string    `json:"question_id"`
	BooleanResponse *bool     `json:"boolean_response,omitempty"`
	ScaleResponse   *int      `json:"scale_response,omitempty"`
	TextResponse    *string   `json:"text_response,omitempty"`
	CreatedAt       time.Time `json:"created_at,omitempty"` // UTC
}

// RawResponse is a client-provided answer, not yet validated against its question.
type RawResponse struct {
	QuestionID      string  `json:"question_id" validate:"required"`
	BooleanResponse *bool   `json:"boolean_response"`
	ScaleResponse   *int    `json:"scale_response"`
	TextResponse    *string `json:"text_response"`
}

// NewEvaluation contains information needed to record (or replace) an evaluation.
type NewEvaluation struct {
	Grade                 float64       `json:"grade" validate:"gte=0,lte=10"`
	EvaluationDescription string        `json:"evaluation_description"`
	ArticleVersionID      string        `json:"article_version_id" validate:"required,uuid4"`
	Status                string        `json:"status" validate:"required,oneof=APPROVED TO_CORRECTION REJECTED"`
	ChecklistResponses    []RawResponse `json:"checklist_responses" validate:"omitempty,dive"`
}

func (ne *NewEvaluation) Validate(validate *validator.Validate) error {
	ne.EvaluationDescription = core.CleanString(ne.EvaluationDescription)
	return validate.Struct(ne)
}

// DraftEvaluation contains information needed to save a draft. Unlike
// NewEvaluation, the decision may still be blank.
type DraftEvaluation struct {
	Grade                 float64       `json:"grade" validate:"gte=0,lte=10"`
	EvaluationDescription string        `json:"evaluation_description"`
	ArticleVersionID      string        `json:"article_version_id" validate:"required,uuid4"`
	Status                string        `json:"status" validate:"omitempty,oneof=APPROVED TO_CORRECTION REJECTED"`
	ChecklistResponses    []RawResponse `json:"checklist_responses" validate:"omitempty,dive"`
}

func (de *DraftEvaluation) Validate(validate *validator.Validate) error {
	de.EvaluationDescription = core.CleanString(de.EvaluationDescription)
	return validate.Struct(de)
}

// Result is the outcome of recording an evaluation: the saved record plus the
// article-level aggregate when the round completed.
type Result struct {
	Evaluation       Evaluation     `json:"evaluation"`
	ArticleFinalized bool           `json:"article_finalized"`
	FinalStatus      article.Status `json:"final_status,omitempty"`
	FinalGrade       *float64       `json:"final_grade,omitempty"`
}

// Eligibility answers "may this evaluator score this article right now?".
type Eligibility struct {
	CanEvaluate bool   `json:"can_evaluate"`
	Reason      string `json:"reason,omitempty"`
}

// Stats are per-evaluator submission tallies.
type Stats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Completed    int     `json:"completed"`
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	ToCorrection int     `json:"to_correction"`
	AverageGrade float64 `json:"average_grade"`
}

type QueryFilter struct {
	ArticleID     string `query:"article_id"`
	EvaluatorID   string `query:"evaluator_id"`
	Decision      string `query:"status"`
	WithResponses bool   `query:"with_checklist_responses"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.ArticleID == "" && qf.EvaluatorID == "" && qf.Decision == ""
}
