package event

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/submita/submita/core"
)

// EvaluationType determines how evaluators' decisions aggregate into one
// article-level outcome.
type EvaluationType string

const (
	EvaluationDirect EvaluationType = "DIRECT" // 1 evaluator
	EvaluationPair   EvaluationType = "PAIR"   // 2 evaluators
	EvaluationPanel  EvaluationType = "PANEL"  // N evaluators (Event.PanelSize)
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
	StatusClosed   Status = "CLOSED"
)

// DefaultPanelSize is the minimum (and default) panel size for PANEL events.
const DefaultPanelSize = 3

type Event struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	Banner              string         `json:"banner,omitempty"`
	EventStartDate      time.Time      `json:"event_start_date"`
	EventEndDate        time.Time      `json:"event_end_date"`
	SubmissionStartDate time.Time      `json:"submission_start_date"`
	SubmissionEndDate   time.Time      `json:"submission_end_date"`
	EvaluationType      EvaluationType `json:"evaluation_type"`
	PanelSize           int            `json:"panel_size,omitempty"` // PANEL only
	Status              Status         `json:"status"`
	CoordinatorID       string         `json:"coordinator_id"`
	ChecklistID         string         `json:"checklist_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"` // UTC
	UpdatedAt           time.Time      `json:"updated_at"` // UTC
}

// RequiredEvaluations returns the number of evaluations needed to close a
// round for this event's evaluation type.
func (e Event) RequiredEvaluations() (int, error) {
	switch e.EvaluationType {
	case EvaluationDirect:
		return 1, nil
	case EvaluationPair:
		return 2, nil
	case EvaluationPanel:
		if e.PanelSize >= DefaultPanelSize {
			return e.PanelSize, nil
		}
		return DefaultPanelSize, nil
	}
	return 0, ErrUnknownEvaluationType
}

// SubmissionOpenAt reports whether the event accepts article submissions at t.
func (e Event) SubmissionOpenAt(t time.Time) bool {
	if e.Status != StatusActive {
		return false
	}
	return !t.Before(e.SubmissionStartDate) && !t.After(e.SubmissionEndDate)
}

type Checklist struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"` // UTC
	UpdatedAt   time.Time  `json:"updated_at"` // UTC
	Questions   []Question `json:"questions,omitempty"`
}

type QuestionType string

const (
	QuestionYesNo QuestionType = "YES_NO"
	QuestionScale QuestionType = "SCALE"
	QuestionText  QuestionType = "TEXT"
)

type Question struct {
	ID          string       `json:"id"`
	ChecklistID string       `json:"checklist_id"`
	Description string       `json:"description"`
	Type        QuestionType `json:"type"`
	IsRequired  bool         `json:"is_required"`
	Order       int          `json:"order"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name                string    `json:"name" validate:"required"`
	Description         string    `json:"description" validate:"required"`
	Banner              string    `json:"banner"`
	EventStartDate      time.Time `json:"event_start_date" validate:"required"`
	EventEndDate        time.Time `json:"event_end_date" validate:"required,gtfield=EventStartDate"`
	SubmissionStartDate time.Time `json:"submission_start_date" validate:"required"`
	SubmissionEndDate   time.Time `json:"submission_end_date" validate:"required,gtfield=SubmissionStartDate"`
	EvaluationType      string    `json:"evaluation_type" validate:"required,oneof=DIRECT PAIR PANEL"`
	PanelSize           int       `json:"panel_size" validate:"omitempty,gte=3"`
	ChecklistID         string    `json:"checklist_id" validate:"omitempty,uuid4"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Description = core.CleanString(ne.Description)
	if err := validate.Struct(ne); err != nil {
		return err
	}
	if EvaluationType(ne.EvaluationType) == EvaluationPanel && ne.PanelSize == 0 {
		ne.PanelSize = DefaultPanelSize
	}
	return nil
}

// UpdateEvent defines what information may be provided to modify an existing Event.
type UpdateEvent struct {
	Name                string     `json:"name"`
	Description         string     `json:"description"`
	Banner              string     `json:"banner"`
	EventStartDate      *time.Time `json:"event_start_date"`
	EventEndDate        *time.Time `json:"event_end_date"`
	SubmissionStartDate *time.Time `json:"submission_start_date"`
	SubmissionEndDate   *time.Time `json:"submission_end_date"`
	Status              string     `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE CLOSED"`
	PanelSize           *int       `json:"panel_size" validate:"omitempty,gte=3"`
	ChecklistID         string     `json:"checklist_id" validate:"omitempty,uuid4"`
}

func (ue *UpdateEvent) Validate(validate *validator.Validate) error {
	ue.Name = core.CleanString(ue.Name)
	ue.Description = core.CleanString(ue.Description)
	return validate.Struct(ue)
}

// NewChecklist contains information needed to create a new Checklist.
type NewChecklist struct {
	Name        string        `json:"name" validate:"required"`
	Description string        `json:"description"`
	Questions   []NewQuestion `json:"questions" validate:"omitempty,dive"`
}

func (nc *NewChecklist) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// NewQuestion contains information needed to attach a Question to a Checklist.
type NewQuestion struct {
	Description string `json:"description" validate:"required"`
	Type        string `json:"type" validate:"required,oneof=YES_NO SCALE TEXT"`
	IsRequired  bool   `json:"is_required"`
	Order       int    `json:"order" validate:"gte=0"`
}

func (nq *NewQuestion) Validate(validate *validator.Validate) error {
	nq.Description = core.CleanString(nq.Description)
	return validate.Struct(nq)
}

type QueryFilter struct {
	Search        string `query:"search"`
	Status        string `query:"status"`
	CoordinatorID string `query:"coordinator_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == "" && qf.CoordinatorID == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
