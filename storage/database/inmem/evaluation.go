package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/evaluation"
)

type evaluationRepository struct {
	db *DB
}

var _ evaluation.Repository = (*evaluationRepository)(nil)

func NewEvaluationRepository(db *DB) evaluation.Repository {
	return &evaluationRepository{db: db}
}

func (repo *evaluationRepository) UpsertEvaluation(ctx context.Context, ev evaluation.Evaluation, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	defer repo.db.lock(exec)()

	ev.CreatedAt = ev.SubmittedAt
	ev.UpdatedAt = ev.SubmittedAt
	for _, existing := range repo.db.evaluations {
		if existing.EvaluatorID == ev.EvaluatorID && existing.ArticleVersionID == ev.ArticleVersionID {
			ev.ID = existing.ID
			ev.CreatedAt = existing.CreatedAt
			break
		}
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	for i := range ev.Responses {
		if ev.Responses[i].ID == "" {
			ev.Responses[i].ID = uuid.New().String()
		}
		ev.Responses[i].CreatedAt = ev.SubmittedAt
	}
	repo.db.evaluations[ev.ID] = &ev
	return ev, nil
}

func (repo *evaluationRepository) GetEvaluation(ctx context.Context, id string, withResponses bool, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	defer repo.db.rlock(exec)()

	ev, ok := repo.db.evaluations[id]
	if !ok {
		return evaluation.Evaluation{}, evaluation.ErrNotFound
	}
	res := *ev
	if !withResponses {
		res.Responses = nil
	}
	return res, nil
}

func (repo *evaluationRepository) FindByEvaluatorAndVersion(ctx context.Context, evaluatorID, versionID string, exec ...core.DBExecutor) (evaluation.Evaluation, error) {
	defer repo.db.rlock(exec)()

	for _, ev := range repo.db.evaluations {
		if ev.EvaluatorID == evaluatorID && ev.ArticleVersionID == versionID {
			res := *ev
			res.Responses = nil
			return res, nil
		}
	}
	return evaluation.Evaluation{}, evaluation.ErrNotFound
}

func (repo *evaluationRepository) ListForVersion(ctx context.Context, versionID string, exec ...core.DBExecutor) ([]evaluation.Evaluation, error) {
	defer repo.db.rlock(exec)()

	evals := make([]evaluation.Evaluation, 0)
	for _, ev := range repo.db.evaluations {
		if ev.ArticleVersionID == versionID {
			evals = append(evals, *ev)
		}
	}
	sort.Slice(evals, func(i, j int) bool { return evals[i].SubmittedAt.Before(evals[j].SubmittedAt) })
	return evals, nil
}

func (repo *evaluationRepository) DeleteEvaluation(ctx context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	delete(repo.db.evaluations, id)
	return nil
}

func (repo *evaluationRepository) DeleteResponses(ctx context.Context, evaluationID string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	if ev, ok := repo.db.evaluations[evaluationID]; ok {
		ev.Responses = nil
	}
	return nil
}

func (repo *evaluationRepository) QueryEvaluations(ctx context.Context, filter *evaluation.QueryFilter, exec ...core.DBExecutor) ([]evaluation.Evaluation, error) {
	defer repo.db.rlock(exec)()

	evals := make([]evaluation.Evaluation, 0)
	for _, ev := range repo.db.evaluations {
		if filter != nil && !repo.matchEvaluation(*ev, filter) {
			continue
		}
		res := *ev
		if filter == nil || !filter.WithResponses {
			res.Responses = nil
		}
		evals = append(evals, res)
	}
	sort.Slice(evals, func(i, j int) bool { return evals[i].SubmittedAt.After(evals[j].SubmittedAt) })
	return evals, nil
}

func (repo *evaluationRepository) matchEvaluation(ev evaluation.Evaluation, filter *evaluation.QueryFilter) bool {
	if filter.ArticleID != "" {
		ver, ok := repo.db.versions[ev.ArticleVersionID]
		if !ok || ver.ArticleID != filter.ArticleID {
			return false
		}
	}
	if filter.EvaluatorID != "" && ev.EvaluatorID != filter.EvaluatorID {
		return false
	}
	if filter.Decision != "" && ev.Decision != evaluation.Decision(filter.Decision) {
		return false
	}
	return true
}
