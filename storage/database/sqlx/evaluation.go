package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/evaluation"
)

var (
	evaluationColumns = []string{
		"id", "evaluator_id", "article_version_id", "grade", "decision", "comments",
		"is_draft", "submitted_at", "created_at", "updated_at",
	}
	responseColumns = []string{
		"id", "evaluation_id", "question_id",
		"boolean_response", "scale_response", "text_response", "created_at",
	}
)

type evaluationRepository struct {
	db core.DBExecutor
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db core.DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func scanEvaluation(row sq.RowScanner) (evaluation.Evaluation, error) {
	var ev evaluation.Evaluation
	var comments null.String
	err := row.Scan(
		&ev.ID, &ev.EvaluatorID, &ev.ArticleVersionID, &ev.Grade, &ev.Decision, &comments,
		&ev.IsDraft, &ev.SubmittedAt, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return ev, evaluation.ErrNotFound
		}
		return ev, errors.Wrap(err, "scanning evaluation")
	}
	ev.Comments = comments.String
	return ev, nil
}

// UpsertEvaluation wholesale-replaces on the (evaluator_id, article_version_id)
// unique pair: the previous grade, decision, comments and responses are gone.
func (repo *evaluationRepository) UpsertEvaluation(ctx context.Context, ev evaluation.Evaluation, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	xc := executor(repo.db, exec)

	// a fresh id is proposed unconditionally: on conflict the existing row keeps
	// its id and RETURNING reports it, so the pk constraint never trips first.
	ev.ID = uuid.New().String()
	ev.CreatedAt = ev.SubmittedAt
	ev.UpdatedAt = ev.SubmittedAt

	const stmt = `
		INSERT INTO evaluation (id, evaluator_id, article_version_id, grade, decision, comments,
		                        is_draft, submitted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (evaluator_id, article_version_id) DO UPDATE
		SET grade = EXCLUDED.grade,
		    decision = EXCLUDED.decision,
		    comments = EXCLUDED.comments,
		    is_draft = EXCLUDED.is_draft,
		    submitted_at = EXCLUDED.submitted_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`
	err := xc.QueryRowContext(ctx, stmt,
		ev.ID, ev.EvaluatorID, ev.ArticleVersionID, ev.Grade, ev.Decision,
		null.NewString(ev.Comments, ev.Comments != ""), ev.IsDraft, ev.SubmittedAt, ev.CreatedAt, ev.UpdatedAt,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "upserting evaluation")
	}

	del, args, err := psql.Delete("checklist_response").Where(sq.Eq{"evaluation_id": ev.ID}).ToSql()
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "building query")
	}
	if _, err = xc.ExecContext(ctx, del, args...); err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "clearing responses")
	}

	for i := range ev.Responses {
		resp := &ev.Responses[i]
		if resp.ID == "" {
			resp.ID = uuid.New().String()
		}
		resp.CreatedAt = ev.SubmittedAt
		ins, args, err := psql.Insert("checklist_response").
			Columns(responseColumns...).
			Values(
				resp.ID, ev.ID, resp.QuestionID,
				resp.BooleanResponse, resp.ScaleResponse, resp.TextResponse, resp.CreatedAt,
			).
			ToSql()
		if err != nil {
			return evaluation.Evaluation{}, errors.Wrap(err, "building query")
		}
		if _, err = xc.ExecContext(ctx, ins, args...); err != nil {
			return evaluation.Evaluation{}, errors.Wrap(err, "saving response")
		}
	}
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluation(ctx context.Context, id string, withResponses bool, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(evaluationColumns...).From("evaluation").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "building query")
	}
	ev, err := scanEvaluation(xc.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return evaluation.Evaluation{}, err
	}
	if withResponses {
		if ev.Responses, err = repo.queryResponses(ctx, ev.ID, exec); err != nil {
			return evaluation.Evaluation{}, err
		}
	}
	return ev, nil
}

func (repo *evaluationRepository) queryResponses(ctx context.Context, evaluationID string, exec []core.DBExecutor) ([]evaluation.ChecklistResponse, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(responseColumns...).From("checklist_response").
		Where(sq.Eq{"evaluation_id": evaluationID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying responses")
	}
	defer func() { _ = rows.Close() }()

	resps := make([]evaluation.ChecklistResponse, 0)
	for rows.Next() {
		var resp evaluation.ChecklistResponse
		var evalID string
		var boolResp null.Bool
		var scaleResp null.Int
		var textResp null.String
		err = rows.Scan(&resp.ID, &evalID, &resp.QuestionID, &boolResp, &scaleResp, &textResp, &resp.CreatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning response")
		}
		if boolResp.Valid {
			resp.BooleanResponse = &boolResp.Bool
		}
		if scaleResp.Valid {
			resp.ScaleResponse = &scaleResp.Int
		}
		if textResp.Valid {
			resp.TextResponse = &textResp.String
		}
		resps = append(resps, resp)
	}
	return resps, errors.Wrap(rows.Err(), "querying responses")
}

func (repo *evaluationRepository) FindByEvaluatorAndVersion(ctx context.Context, evaluatorID, versionID string, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(evaluationColumns...).From("evaluation").
		Where(sq.Eq{"evaluator_id": evaluatorID, "article_version_id": versionID}).
		ToSql()
	if err != nil {
		return evaluation.Evaluation{}, errors.Wrap(err, "building query")
	}
	return scanEvaluation(xc.QueryRowContext(ctx, stmt, args...))
}

func (repo *evaluationRepository) ListForVersion(ctx context.Context, versionID string, exec ...core.DBExecutor) ([]evaluation.Evaluation, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(evaluationColumns...).From("evaluation").
		Where(sq.Eq{"article_version_id": versionID}).
		OrderBy("submitted_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	return repo.queryEvaluations(ctx, xc, stmt, args)
}

func (repo *evaluationRepository) QueryEvaluations(ctx context.Context, filter *evaluation.QueryFilter, exec ...core.DBExecutor) ([]evaluation.Evaluation, error) {
	xc := executor(repo.db, exec)

	cols := make([]string, 0, len(evaluationColumns))
	for _, c := range evaluationColumns {
		cols = append(cols, "e."+c)
	}
	q := psql.Select(cols...).From("evaluation e").OrderBy("e.submitted_at DESC")
	withResponses := false
	if filter != nil {
		withResponses = filter.WithResponses
		if filter.ArticleID != "" {
			q = q.Join("article_version v ON v.id = e.article_version_id").
				Where(sq.Eq{"v.article_id": filter.ArticleID})
		}
		if filter.EvaluatorID != "" {
			q = q.Where(sq.Eq{"e.evaluator_id": filter.EvaluatorID})
		}
		if filter.Decision != "" {
			q = q.Where(sq.Eq{"e.decision": filter.Decision})
		}
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	evals, err := repo.queryEvaluations(ctx, xc, stmt, args)
	if err != nil {
		return nil, err
	}
	if withResponses {
		for i := range evals {
			if evals[i].Responses, err = repo.queryResponses(ctx, evals[i].ID, exec); err != nil {
				return nil, err
			}
		}
	}
	return evals, nil
}

// DeleteEvaluation relies on the FK cascade to take the checklist responses
// down with the evaluation row.
func (repo *evaluationRepository) DeleteEvaluation(ctx context.Context, id string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Delete("evaluation").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = xc.ExecContext(ctx, stmt, args...)
	return errors.Wrap(err, "deleting evaluation")
}

func (repo *evaluationRepository) DeleteResponses(ctx context.Context, evaluationID string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Delete("checklist_response").Where(sq.Eq{"evaluation_id": evaluationID}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = xc.ExecContext(ctx, stmt, args...)
	return errors.Wrap(err, "deleting responses")
}

func (repo *evaluationRepository) queryEvaluations(ctx context.Context, xc core.DBExecutor, stmt string, args []interface{}) ([]evaluation.Evaluation, error) {
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying evaluations")
	}
	defer func() { _ = rows.Close() }()

	evals := make([]evaluation.Evaluation, 0)
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		evals = append(evals, ev)
	}
	return evals, errors.Wrap(rows.Err(), "querying evaluations")
}
