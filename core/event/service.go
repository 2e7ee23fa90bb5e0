package event

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/user"
)

var (
	// errors
	ErrNotFound              = errors.New("event not found")
	ErrChecklistNotFound     = errors.New("checklist not found")
	ErrQuestionNotFound      = errors.New("question not found")
	ErrUnknownEvaluationType = errors.New("unknown evaluation type")
	ErrEvaluatorNotAssigned  = errors.New("evaluator is not assigned to this event")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// QueryEvents applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Event.Name or Event.Description.
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Event, error)
		UpdateEvent(ctx context.Context, evt Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error

		AssignEvaluators(ctx context.Context, eventID string, userIDs []string, exec ...core.DBExecutor) error
		RemoveEvaluator(ctx context.Context, eventID, userID string, exec ...core.DBExecutor) error
		QueryEvaluatorIDs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]string, error)
		IsEvaluatorAssigned(ctx context.Context, eventID, userID string, exec ...core.DBExecutor) (bool, error)

		CreateChecklist(ctx context.Context, cl Checklist, exec ...core.DBExecutor) (Checklist, error)
		GetChecklist(ctx context.Context, id string, withQuestions bool, exec ...core.DBExecutor) (Checklist, error)
		QueryChecklists(ctx context.Context, exec ...core.DBExecutor) ([]Checklist, error)
		UpdateChecklist(ctx context.Context, cl Checklist, exec ...core.DBExecutor) (Checklist, error)

		CreateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (Question, error)
		// QueryQuestions returns the checklist's active questions ordered by Question.Order.
		QueryQuestions(ctx context.Context, checklistID string, exec ...core.DBExecutor) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question, exec ...core.DBExecutor) (Question, error)
		// RemoveQuestion deletes the question, or deactivates it instead if any
		// checklist response references it.
		RemoveQuestion(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, coordinatorID string, ne NewEvent) (Event, error)
		GetByID(ctx context.Context, id string) (Event, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		Update(ctx context.Context, id string, ue UpdateEvent) (Event, error)
		Delete(ctx context.Context, id string) error

		AssignEvaluators(ctx context.Context, eventID string, userIDs []string) error
		RemoveEvaluator(ctx context.Context, eventID, userID string) error
		QueryEvaluators(ctx context.Context, eventID string) ([]user.User, error)
		IsEvaluatorAssigned(ctx context.Context, eventID, userID string) (bool, error)

		CreateChecklist(ctx context.Context, nc NewChecklist) (Checklist, error)
		GetChecklist(ctx context.Context, id string) (Checklist, error)
		QueryChecklists(ctx context.Context) ([]Checklist, error)
		UpdateChecklist(ctx context.Context, id string, nc NewChecklist) (Checklist, error)

		AddQuestion(ctx context.Context, checklistID string, nq NewQuestion) (Question, error)
		UpdateQuestion(ctx context.Context, id string, nq NewQuestion) (Question, error)
		RemoveQuestion(ctx context.Context, id string) error
		// QueryEventQuestions returns the active questions of the event's
		// checklist, or an empty slice if the event has none configured.
		QueryEventQuestions(ctx context.Context, eventID string) ([]Question, error)
	}

	service struct {
		repo    Repository
		usrRepo user.Repository
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrRepo user.Repository, conf *core.Config) Service {
	return &service{
		repo:    repo,
		usrRepo: usrRepo,
		conf:    conf,
	}
}

func (svc *service) Create(ctx context.Context, coordinatorID string, ne NewEvent) (Event, error) {
	if ne.ChecklistID != "" {
		if _, err := svc.repo.GetChecklist(ctx, ne.ChecklistID, false); err != nil {
			if errors.Cause(err) == ErrChecklistNotFound {
				return Event{}, core.NewValidationError(err, core.FieldError{Field: "checklist_id", Error: err.Error()})
			}
			return Event{}, errors.Wrap(err, "finding checklist")
		}
	}

	now := time.Now().UTC()
	evt := Event{
		Name:                ne.Name,
		Description:         ne.Description,
		Banner:              ne.Banner,
		EventStartDate:      ne.EventStartDate,
		EventEndDate:        ne.EventEndDate,
		SubmissionStartDate: ne.SubmissionStartDate,
		SubmissionEndDate:   ne.SubmissionEndDate,
		EvaluationType:      EvaluationType(ne.EvaluationType),
		PanelSize:           ne.PanelSize,
		Status:              StatusActive,
		CoordinatorID:       coordinatorID,
		ChecklistID:         ne.ChecklistID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return svc.repo.CreateEvent(ctx, evt)
}

func (svc *service) GetByID(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, id string, ue UpdateEvent) (Event, error) {
	evt, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}

	if ue.Name != "" {
		evt.Name = ue.Name
	}
	if ue.Description != "" {
		evt.Description = ue.Description
	}
	if ue.Banner != "" {
		evt.Banner = ue.Banner
	}
	if ue.EventStartDate != nil {
		evt.EventStartDate = *ue.EventStartDate
	}
	if ue.EventEndDate != nil {
		evt.EventEndDate = *ue.EventEndDate
	}
	if ue.SubmissionStartDate != nil {
		evt.SubmissionStartDate = *ue.SubmissionStartDate
	}
	if ue.SubmissionEndDate != nil {
		evt.SubmissionEndDate = *ue.SubmissionEndDate
	}
	if ue.Status != "" {
		evt.Status = Status(ue.Status)
	}
	if ue.PanelSize != nil {
		evt.PanelSize = *ue.PanelSize
	}
	if ue.ChecklistID != "" {
		if _, err = svc.repo.GetChecklist(ctx, ue.ChecklistID, false); err != nil {
			if errors.Cause(err) == ErrChecklistNotFound {
				return Event{}, core.NewValidationError(err, core.FieldError{Field: "checklist_id", Error: err.Error()})
			}
			return Event{}, errors.Wrap(err, "finding checklist")
		}
		evt.ChecklistID = ue.ChecklistID
	}
	evt.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateEvent(ctx, evt)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *service) AssignEvaluators(ctx context.Context, eventID string, userIDs []string) error {
	if _, err := svc.repo.GetEvent(ctx, eventID); err != nil {
		return err
	}

	users, err := svc.usrRepo.GetUsersByID(ctx, userIDs)
	if err != nil {
		return errors.Wrap(err, "finding users")
	}
	if len(users) != len(userIDs) {
		return core.NewValidationError(user.ErrNotFound, core.FieldError{Field: "user_ids", Error: user.ErrNotFound.Error()})
	}
	for _, usr := range users {
		if !usr.IsEvaluator() {
			return core.NewValidationError(nil, core.FieldError{
				Field: "user_ids",
				Error: usr.Username + " is not an evaluator",
			})
		}
	}

	return svc.repo.AssignEvaluators(ctx, eventID, userIDs)
}

func (svc *service) RemoveEvaluator(ctx context.Context, eventID, userID string) error {
	assigned, err := svc.repo.IsEvaluatorAssigned(ctx, eventID, userID)
	if err != nil {
		return errors.Wrap(err, "checking evaluator assignment")
	}
	if !assigned {
		return ErrEvaluatorNotAssigned
	}
	return svc.repo.RemoveEvaluator(ctx, eventID, userID)
}

func (svc *service) QueryEvaluators(ctx context.Context, eventID string) ([]user.User, error) {
	ids, err := svc.repo.QueryEvaluatorIDs(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []user.User{}, nil
	}
	return svc.usrRepo.GetUsersByID(ctx, ids)
}

func (svc *service) IsEvaluatorAssigned(ctx context.Context, eventID, userID string) (bool, error) {
	return svc.repo.IsEvaluatorAssigned(ctx, eventID, userID)
}

func (svc *service) CreateChecklist(ctx context.Context, nc NewChecklist) (Checklist, error) {
	now := time.Now().UTC()
	cl := Checklist{
		Name:        nc.Name,
		Description: nc.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	cl, err := svc.repo.CreateChecklist(ctx, cl)
	if err != nil {
		return Checklist{}, err
	}

	for _, nq := range nc.Questions {
		q, err := svc.repo.CreateQuestion(ctx, Question{
			ChecklistID: cl.ID,
			Description: nq.Description,
			Type:        QuestionType(nq.Type),
			IsRequired:  nq.IsRequired,
			Order:       nq.Order,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return Checklist{}, errors.Wrap(err, "creating question")
		}
		cl.Questions = append(cl.Questions, q)
	}
	return cl, nil
}

func (svc *service) GetChecklist(ctx context.Context, id string) (Checklist, error) {
	return svc.repo.GetChecklist(ctx, id, true /* withQuestions */)
}

func (svc *service) QueryChecklists(ctx context.Context) ([]Checklist, error) {
	return svc.repo.QueryChecklists(ctx)
}

func (svc *service) UpdateChecklist(ctx context.Context, id string, nc NewChecklist) (Checklist, error) {
	cl, err := svc.repo.GetChecklist(ctx, id, false)
	if err != nil {
		return Checklist{}, err
	}
	cl.Name = nc.Name
	if nc.Description != "" {
		cl.Description = nc.Description
	}
	cl.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateChecklist(ctx, cl)
}

func (svc *service) AddQuestion(ctx context.Context, checklistID string, nq NewQuestion) (Question, error) {
	if _, err := svc.repo.GetChecklist(ctx, checklistID, false); err != nil {
		return Question{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateQuestion(ctx, Question{
		ChecklistID: checklistID,
		Description: nq.Description,
		Type:        QuestionType(nq.Type),
		IsRequired:  nq.IsRequired,
		Order:       nq.Order,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) UpdateQuestion(ctx context.Context, id string, nq NewQuestion) (Question, error) {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	q.Description = nq.Description
	q.Type = QuestionType(nq.Type)
	q.IsRequired = nq.IsRequired
	q.Order = nq.Order
	q.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateQuestion(ctx, q)
}

func (svc *service) RemoveQuestion(ctx context.Context, id string) error {
	if _, err := svc.repo.GetQuestion(ctx, id); err != nil {
		return err
	}
	return svc.repo.RemoveQuestion(ctx, id)
}

func (svc *service) QueryEventQuestions(ctx context.Context, eventID string) ([]Question, error) {
	evt, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if evt.ChecklistID == "" {
		return []Question{}, nil
	}
	return svc.repo.QueryQuestions(ctx, evt.ChecklistID)
}
