package article

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/submita/submita/core"
)

// Status is the article-level outcome of the evaluation state machine.
// It is always derived from the evaluations of the article's current version;
// clients never set it directly.
type Status string

const (
	StatusSubmitted    Status = "SUBMITTED"
	StatusInEvaluation Status = "IN_EVALUATION"
	StatusApproved     Status = "APPROVED"
	StatusToCorrection Status = "TO_CORRECTION"
	StatusRejected     Status = "REJECTED"
)

// IsTerminal reports whether the status closes the article for good.
// TO_CORRECTION is not terminal: it permits one corrective resubmission.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// IsEvaluable reports whether evaluations may still be recorded against the
// article's current version.
func (s Status) IsEvaluable() bool {
	return s == StatusSubmitted || s == StatusInEvaluation
}

type Article struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	ThematicArea   string    `json:"thematic_area"`
	Keywords       []string  `json:"keywords"`
	RelatedAuthors []string  `json:"related_authors"`
	EventID        string    `json:"event_id"`
	AuthorID       string    `json:"author_id"`
	CurrentVersion int       `json:"current_version"`
	Status         Status    `json:"status"`
	FinalGrade     *float64  `json:"final_grade,omitempty"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Version is an immutable snapshot of an article's content. Version numbers
// are 1-based and strictly increasing per article; exactly one version is
// current (Version.Version == Article.CurrentVersion).
type Version struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"article_id"`
	Version   int       `json:"version"`
	PDFPath   string    `json:"pdf_path"`
	FileName  string    `json:"file_name,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewArticle contains information needed to submit a new Article.
type NewArticle struct {
	Title          string   `json:"title" validate:"required"`
	Summary        string   `json:"summary" validate:"required"`
	ThematicArea   string   `json:"thematic_area" validate:"required"`
	Keywords       []string `json:"keywords" validate:"required,min=1,dive,required"`
	RelatedAuthors []string `json:"related_authors" validate:"omitempty,dive,required"`
	EventID        string   `json:"event_id" validate:"required,uuid4"`
	PDFPath        string   `json:"pdf_path" validate:"required"`
	FileName       string   `json:"file_name"`
}

func (na *NewArticle) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Summary = core.CleanString(na.Summary)
	na.ThematicArea = core.CleanString(na.ThematicArea)
	return validate.Struct(na)
}

// UpdateArticle defines the metadata an author may edit while the article is
// still SUBMITTED.
type UpdateArticle struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	ThematicArea   string   `json:"thematic_area"`
	Keywords       []string `json:"keywords" validate:"omitempty,min=1,dive,required"`
	RelatedAuthors []string `json:"related_authors" validate:"omitempty,dive,required"`
}

func (ua *UpdateArticle) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Summary = core.CleanString(ua.Summary)
	ua.ThematicArea = core.CleanString(ua.ThematicArea)
	return validate.Struct(ua)
}

// NewVersion contains information needed to submit a corrective resubmission.
type NewVersion struct {
	PDFPath  string `json:"pdf_path" validate:"required"`
	FileName string `json:"file_name"`
}

func (nv *NewVersion) Validate(validate *validator.Validate) error {
	nv.PDFPath = core.CleanString(nv.PDFPath)
	return validate.Struct(nv)
}

type QueryFilter struct {
	Search      string `query:"search"`
	Status      string `query:"status"`
	EventID     string `query:"event_id"`
	AuthorID    string `query:"user_id"`
	EvaluatorID string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.EventID == "" && qf.AuthorID == "" && qf.EvaluatorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
