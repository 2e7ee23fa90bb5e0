package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/event"
)

type eventRepository struct {
	db *DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	defer repo.db.lock(exec)()

	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	defer repo.db.rlock(exec)()

	if evt, ok := repo.db.events[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(
	ctx context.Context,
	filter *event.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]event.Event, error) {
	defer repo.db.rlock(exec)()

	events := make([]event.Event, 0)
	for _, evt := range repo.db.events {
		if filter != nil && !matchEvent(*evt, filter) {
			continue
		}
		events = append(events, *evt)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	return events, nil
}

func matchEvent(evt event.Event, filter *event.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(evt.Name), s) &&
			!strings.Contains(strings.ToLower(evt.Description), s) {
			return false
		}
	}
	if filter.Status != "" && evt.Status != event.Status(filter.Status) {
		return false
	}
	if filter.CoordinatorID != "" && evt.CoordinatorID != filter.CoordinatorID {
		return false
	}
	return true
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.events[evt.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}
	repo.db.events[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	delete(repo.db.events, id)
	delete(repo.db.evaluators, id)
	return nil
}

func (repo *eventRepository) AssignEvaluators(ctx context.Context, eventID string, userIDs []string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	assigned, ok := repo.db.evaluators[eventID]
	if !ok {
		assigned = make(map[string]bool)
		repo.db.evaluators[eventID] = assigned
	}
	for _, uid := range userIDs {
		assigned[uid] = true
	}
	return nil
}

func (repo *eventRepository) RemoveEvaluator(ctx context.Context, eventID, userID string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if assigned, ok := repo.db.evaluators[eventID]; ok && assigned[userID] {
		delete(assigned, userID)
		return nil
	}
	return event.ErrEvaluatorNotAssigned
}

func (repo *eventRepository) QueryEvaluatorIDs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]string, error) {
	defer repo.db.rlock(exec)()

	ids := make([]string, 0, len(repo.db.evaluators[eventID]))
	for uid := range repo.db.evaluators[eventID] {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	return ids, nil
}

func (repo *eventRepository) IsEvaluatorAssigned(ctx context.Context, eventID, userID string, exec ...core.DBExecutor) (bool, error) {
	defer repo.db.rlock(exec)()
	return repo.db.evaluators[eventID][userID], nil
}

func (repo *eventRepository) CreateChecklist(ctx context.Context, cl event.Checklist, exec ...core.DBExecutor) (event.Checklist, error) {
	defer repo.db.lock(exec)()

	if cl.ID == "" {
		cl.ID = uuid.New().String()
	}
	for i := range cl.Questions {
		if cl.Questions[i].ID == "" {
			cl.Questions[i].ID = uuid.New().String()
		}
		cl.Questions[i].ChecklistID = cl.ID
		q := cl.Questions[i]
		repo.db.questions[q.ID] = &q
	}
	repo.db.checklists[cl.ID] = &cl
	return cl, nil
}

func (repo *eventRepository) GetChecklist(ctx context.Context, id string, withQuestions bool, exec ...core.DBExecutor) (event.Checklist, error) {
	defer repo.db.rlock(exec)()

	cl, ok := repo.db.checklists[id]
	if !ok {
		return event.Checklist{}, event.ErrChecklistNotFound
	}
	res := *cl
	res.Questions = nil
	if withQuestions {
		res.Questions = repo.activeQuestions(id)
	}
	return res, nil
}

func (repo *eventRepository) QueryChecklists(ctx context.Context, exec ...core.DBExecutor) ([]event.Checklist, error) {
	defer repo.db.rlock(exec)()

	cls := make([]event.Checklist, 0, len(repo.db.checklists))
	for _, cl := range repo.db.checklists {
		res := *cl
		res.Questions = nil
		cls = append(cls, res)
	}
	sort.Slice(cls, func(i, j int) bool { return cls[i].CreatedAt.After(cls[j].CreatedAt) })
	return cls, nil
}

func (repo *eventRepository) UpdateChecklist(ctx context.Context, cl event.Checklist, exec ...core.DBExecutor) (event.Checklist, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.checklists[cl.ID]; !ok {
		return event.Checklist{}, event.ErrChecklistNotFound
	}
	repo.db.checklists[cl.ID] = &cl
	return cl, nil
}

func (repo *eventRepository) CreateQuestion(ctx context.Context, q event.Question, exec ...core.DBExecutor) (event.Question, error) {
	defer repo.db.lock(exec)()

	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *eventRepository) GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (event.Question, error) {
	defer repo.db.rlock(exec)()

	if q, ok := repo.db.questions[id]; ok {
		return *q, nil
	}
	return event.Question{}, event.ErrQuestionNotFound
}

func (repo *eventRepository) QueryQuestions(ctx context.Context, checklistID string, exec ...core.DBExecutor) ([]event.Question, error) {
	defer repo.db.rlock(exec)()
	return repo.activeQuestions(checklistID), nil
}

func (repo *eventRepository) activeQuestions(checklistID string) []event.Question {
	questions := make([]event.Question, 0)
	for _, q := range repo.db.questions {
		if q.ChecklistID == checklistID && q.IsActive {
			questions = append(questions, *q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })
	return questions
}

func (repo *eventRepository) UpdateQuestion(ctx context.Context, q event.Question, exec ...core.DBExecutor) (event.Question, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.questions[q.ID]; !ok {
		return event.Question{}, event.ErrQuestionNotFound
	}
	repo.db.questions[q.ID] = &q
	return q, nil
}

func (repo *eventRepository) RemoveQuestion(ctx context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	q, ok := repo.db.questions[id]
	if !ok {
		return event.ErrQuestionNotFound
	}
	for _, ev := range repo.db.evaluations {
		for _, resp := range ev.Responses {
			if resp.QuestionID == id {
				q.IsActive = false
				return nil
			}
		}
	}
	delete(repo.db.questions, id)
	return nil
}
