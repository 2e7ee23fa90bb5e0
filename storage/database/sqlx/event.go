package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/event"
)

var (
	eventColumns = []string{
		"id", "name", "description", "banner",
		"event_start_date", "event_end_date", "submission_start_date", "submission_end_date",
		"evaluation_type", "panel_size", "status", "coordinator_id", "checklist_id",
		"created_at", "updated_at",
	}
	checklistColumns = []string{"id", "name", "description", "is_active", "created_at", "updated_at"}
	questionColumns  = []string{
		"id", "checklist_id", "description", "type", "is_required", `"order"`, "is_active",
		"created_at", "updated_at",
	}
)

type eventRepository struct {
	db core.DBExecutor
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db core.DB) event.Repository {
	return &eventRepository{db: db}
}

func scanEvent(row sq.RowScanner) (event.Event, error) {
	var evt event.Event
	var banner, checklistID null.String
	var panelSize null.Int
	err := row.Scan(
		&evt.ID, &evt.Name, &evt.Description, &banner,
		&evt.EventStartDate, &evt.EventEndDate, &evt.SubmissionStartDate, &evt.SubmissionEndDate,
		&evt.EvaluationType, &panelSize, &evt.Status, &evt.CoordinatorID, &checklistID,
		&evt.CreatedAt, &evt.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return evt, event.ErrNotFound
		}
		return evt, errors.Wrap(err, "scanning event")
	}
	evt.Banner = banner.String
	evt.PanelSize = panelSize.Int
	evt.ChecklistID = checklistID.String
	return evt, nil
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	xc := executor(repo.db, exec)

	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	stmt, args, err := psql.Insert("event").
		Columns(eventColumns...).
		Values(
			evt.ID, evt.Name, evt.Description, null.NewString(evt.Banner, evt.Banner != ""),
			evt.EventStartDate, evt.EventEndDate, evt.SubmissionStartDate, evt.SubmissionEndDate,
			evt.EvaluationType, null.NewInt(evt.PanelSize, evt.PanelSize > 0), evt.Status,
			evt.CoordinatorID, null.NewString(evt.ChecklistID, evt.ChecklistID != ""),
			evt.CreatedAt, evt.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building query")
	}
	if _, err = xc.ExecContext(ctx, stmt, args...); err != nil {
		return event.Event{}, errors.Wrap(err, "creating event")
	}
	return evt, nil
}

func (repo *eventRepository) GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (event.Event, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(eventColumns...).From("event").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building query")
	}
	return scanEvent(xc.QueryRowContext(ctx, stmt, args...))
}

func (repo *eventRepository) QueryEvents(
	ctx context.Context,
	filter *event.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]event.Event, error) {
	xc := executor(repo.db, exec)

	q := psql.Select(eventColumns...).From("event")
	if filter != nil {
		if filter.Search != "" {
			pattern := searchPattern(filter.Search)
			q = q.Where(sq.Or{sq.ILike{"name": pattern}, sq.ILike{"description": pattern}})
		}
		if filter.Status != "" {
			q = q.Where(sq.Eq{"status": filter.Status})
		}
		if filter.CoordinatorID != "" {
			q = q.Where(sq.Eq{"coordinator_id": filter.CoordinatorID})
		}
	}
	for _, ord := range ordering {
		q = q.OrderBy(ord.String())
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	defer func() { _ = rows.Close() }()

	events := make([]event.Event, 0)
	for rows.Next() {
		evt, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, errors.Wrap(rows.Err(), "querying events")
}

func (repo *eventRepository) UpdateEvent(ctx context.Context, evt event.Event, exec ...core.DBExecutor) (event.Event, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Update("event").
		Set("name", evt.Name).
		Set("description", evt.Description).
		Set("banner", null.NewString(evt.Banner, evt.Banner != "")).
		Set("event_start_date", evt.EventStartDate).
		Set("event_end_date", evt.EventEndDate).
		Set("submission_start_date", evt.SubmissionStartDate).
		Set("submission_end_date", evt.SubmissionEndDate).
		Set("panel_size", null.NewInt(evt.PanelSize, evt.PanelSize > 0)).
		Set("status", evt.Status).
		Set("checklist_id", null.NewString(evt.ChecklistID, evt.ChecklistID != "")).
		Set("updated_at", evt.UpdatedAt).
		Where(sq.Eq{"id": evt.ID}).
		ToSql()
	if err != nil {
		return event.Event{}, errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "updating event")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Event{}, event.ErrNotFound
	}
	return evt, nil
}

func (repo *eventRepository) DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Delete("event").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = xc.ExecContext(ctx, stmt, args...)
	return errors.Wrap(err, "deleting event")
}

func (repo *eventRepository) AssignEvaluators(ctx context.Context, eventID string, userIDs []string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	q := psql.Insert("event_evaluator").
		Columns("event_id", "user_id").
		Suffix("ON CONFLICT (event_id, user_id) DO NOTHING")
	for _, uid := range userIDs {
		q = q.Values(eventID, uid)
	}
	stmt, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = xc.ExecContext(ctx, stmt, args...)
	return errors.Wrap(err, "assigning evaluators")
}

func (repo *eventRepository) RemoveEvaluator(ctx context.Context, eventID, userID string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Delete("event_evaluator").
		Where(sq.Eq{"event_id": eventID, "user_id": userID}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrap(err, "removing evaluator")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrEvaluatorNotAssigned
	}
	return nil
}

func (repo *eventRepository) QueryEvaluatorIDs(ctx context.Context, eventID string, exec ...core.DBExecutor) ([]string, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select("user_id").From("event_evaluator").Where(sq.Eq{"event_id": eventID}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying evaluators")
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "querying evaluators")
		}
		ids = append(ids, id)
	}
	return ids, errors.Wrap(rows.Err(), "querying evaluators")
}

func (repo *eventRepository) IsEvaluatorAssigned(ctx context.Context, eventID, userID string, exec ...core.DBExecutor) (bool, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select("true").From("event_evaluator").
		Where(sq.Eq{"event_id": eventID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, errors.Wrap(err, "building query")
	}
	var assigned bool
	if err = xc.QueryRowContext(ctx, stmt, args...).Scan(&assigned); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errors.Wrap(err, "checking assignment")
	}
	return assigned, nil
}

func (repo *eventRepository) CreateChecklist(ctx context.Context, cl event.Checklist, exec ...core.DBExecutor) (event.Checklist, error) {
	xc := executor(repo.db, exec)

	if cl.ID == "" {
		cl.ID = uuid.New().String()
	}
	stmt, args, err := psql.Insert("checklist").
		Columns(checklistColumns...).
		Values(cl.ID, cl.Name, cl.Description, cl.IsActive, cl.CreatedAt, cl.UpdatedAt).
		ToSql()
	if err != nil {
		return event.Checklist{}, errors.Wrap(err, "building query")
	}
	if _, err = xc.ExecContext(ctx, stmt, args...); err != nil {
		return event.Checklist{}, errors.Wrap(err, "creating checklist")
	}

	for i := range cl.Questions {
		cl.Questions[i].ChecklistID = cl.ID
		q, err := repo.CreateQuestion(ctx, cl.Questions[i], exec...)
		if err != nil {
			return event.Checklist{}, err
		}
		cl.Questions[i] = q
	}
	return cl, nil
}

func (repo *eventRepository) GetChecklist(ctx context.Context, id string, withQuestions bool, exec ...core.DBExecutor) (event.Checklist, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(checklistColumns...).From("checklist").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return event.Checklist{}, errors.Wrap(err, "building query")
	}
	var cl event.Checklist
	err = xc.QueryRowContext(ctx, stmt, args...).
		Scan(&cl.ID, &cl.Name, &cl.Description, &cl.IsActive, &cl.CreatedAt, &cl.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return cl, event.ErrChecklistNotFound
		}
		return cl, errors.Wrap(err, "scanning checklist")
	}
	if withQuestions {
		if cl.Questions, err = repo.QueryQuestions(ctx, cl.ID, exec...); err != nil {
			return cl, err
		}
	}
	return cl, nil
}

func (repo *eventRepository) QueryChecklists(ctx context.Context, exec ...core.DBExecutor) ([]event.Checklist, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(checklistColumns...).From("checklist").OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying checklists")
	}
	defer func() { _ = rows.Close() }()

	cls := make([]event.Checklist, 0)
	for rows.Next() {
		var cl event.Checklist
		if err = rows.Scan(&cl.ID, &cl.Name, &cl.Description, &cl.IsActive, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning checklist")
		}
		cls = append(cls, cl)
	}
	return cls, errors.Wrap(rows.Err(), "querying checklists")
}

func (repo *eventRepository) UpdateChecklist(ctx context.Context, cl event.Checklist, exec ...core.DBExecutor) (event.Checklist, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Update("checklist").
		Set("name", cl.Name).
		Set("description", cl.Description).
		Set("is_active", cl.IsActive).
		Set("updated_at", cl.UpdatedAt).
		Where(sq.Eq{"id": cl.ID}).
		ToSql()
	if err != nil {
		return event.Checklist{}, errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return event.Checklist{}, errors.Wrap(err, "updating checklist")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Checklist{}, event.ErrChecklistNotFound
	}
	return cl, nil
}

func scanQuestion(row sq.RowScanner) (event.Question, error) {
	var q event.Question
	err := row.Scan(
		&q.ID, &q.ChecklistID, &q.Description, &q.Type, &q.IsRequired, &q.Order, &q.IsActive,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return q, event.ErrQuestionNotFound
		}
		return q, errors.Wrap(err, "scanning question")
	}
	return q, nil
}

func (repo *eventRepository) CreateQuestion(ctx context.Context, q event.Question, exec ...core.DBExecutor) (event.Question, error) {
	xc := executor(repo.db, exec)

	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	stmt, args, err := psql.Insert("question").
		Columns(questionColumns...).
		Values(q.ID, q.ChecklistID, q.Description, q.Type, q.IsRequired, q.Order, q.IsActive, q.CreatedAt, q.UpdatedAt).
		ToSql()
	if err != nil {
		return event.Question{}, errors.Wrap(err, "building query")
	}
	if _, err = xc.ExecContext(ctx, stmt, args...); err != nil {
		return event.Question{}, errors.Wrap(err, "creating question")
	}
	return q, nil
}

func (repo *eventRepository) GetQuestion(ctx context.Context, id string, exec ...core.DBExecutor) (event.Question, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(questionColumns...).From("question").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return event.Question{}, errors.Wrap(err, "building query")
	}
	return scanQuestion(xc.QueryRowContext(ctx, stmt, args...))
}

func (repo *eventRepository) QueryQuestions(ctx context.Context, checklistID string, exec ...core.DBExecutor) ([]event.Question, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(questionColumns...).From("question").
		Where(sq.Eq{"checklist_id": checklistID, "is_active": true}).
		OrderBy(`"order" ASC`).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying questions")
	}
	defer func() { _ = rows.Close() }()

	questions := make([]event.Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, errors.Wrap(rows.Err(), "querying questions")
}

func (repo *eventRepository) UpdateQuestion(ctx context.Context, q event.Question, exec ...core.DBExecutor) (event.Question, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Update("question").
		Set("description", q.Description).
		Set("type", q.Type).
		Set("is_required", q.IsRequired).
		Set(`"order"`, q.Order).
		Set("is_active", q.IsActive).
		Set("updated_at", q.UpdatedAt).
		Where(sq.Eq{"id": q.ID}).
		ToSql()
	if err != nil {
		return event.Question{}, errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return event.Question{}, errors.Wrap(err, "updating question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.Question{}, event.ErrQuestionNotFound
	}
	return q, nil
}

// RemoveQuestion deletes the question, or deactivates it when submitted
// responses still reference it: answer history must survive checklist edits.
func (repo *eventRepository) RemoveQuestion(ctx context.Context, id string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select("true").From("checklist_response").
		Where(sq.Eq{"question_id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var referenced bool
	if err = xc.QueryRowContext(ctx, stmt, args...).Scan(&referenced); err != nil && err != sql.ErrNoRows {
		return errors.Wrap(err, "checking question responses")
	}

	if referenced {
		stmt, args, err = psql.Update("question").Set("is_active", false).Where(sq.Eq{"id": id}).ToSql()
	} else {
		stmt, args, err = psql.Delete("question").Where(sq.Eq{"id": id}).ToSql()
	}
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrap(err, "removing question")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return event.ErrQuestionNotFound
	}
	return nil
}
