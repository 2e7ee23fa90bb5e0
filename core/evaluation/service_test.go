package evaluation_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/evaluation"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
	emailsvc "github.com/submita/submita/services/email"
	inmemdb "github.com/submita/submita/storage/database/inmem"
	testutil "github.com/submita/submita/tests"
)

type serviceFixture struct {
	svc      evaluation.Service
	artSvc   article.Service
	usrRepo  user.Repository
	evtRepo  event.Repository
	artRepo  article.Repository
	evalRepo evaluation.Repository

	coordinator user.User
	author      user.User
}

func setup(t *testing.T) *serviceFixture {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	db := inmemdb.Open()
	f := &serviceFixture{
		usrRepo:  inmemdb.NewUserRepository(db),
		evtRepo:  inmemdb.NewEventRepository(db),
		artRepo:  inmemdb.NewArticleRepository(db),
		evalRepo: inmemdb.NewEvaluationRepository(db),
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	f.svc = evaluation.NewService(db, f.evalRepo, f.artRepo, f.evtRepo, f.usrRepo, mailSvc, conf)
	f.artSvc = article.NewService(db, f.artRepo, f.evtRepo, conf)

	f.coordinator = testutil.CreateUser(t, f.usrRepo, "Coordinator", "coords1", "coords1@test.cd", "", user.CoordinatorRoles, true)
	f.author = testutil.CreateUser(t, f.usrRepo, "Author", "author1", "author1@test.cd", "", user.StudentRoles, true)
	return f
}

func (f *serviceFixture) newEvaluator(t *testing.T, uname string) user.User {
	t.Helper()
	return testutil.CreateUser(t, f.usrRepo, uname, uname, uname+"@test.cd", "", user.EvaluatorRoles, true)
}

func (f *serviceFixture) assign(t *testing.T, eventID string, evaluators ...user.User) {
	t.Helper()
	ids := make([]string, 0, len(evaluators))
	for _, ev := range evaluators {
		ids = append(ids, ev.ID)
	}
	require.NoError(t, f.evtRepo.AssignEvaluators(context.Background(), eventID, ids))
}

func newEval(versionID string, grade float64, status evaluation.Decision) evaluation.NewEvaluation {
	return evaluation.NewEvaluation{
		Grade:            grade,
		ArticleVersionID: versionID,
		Status:           string(status),
	}
}

func TestService_Record_direct(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "direval1")

	evt := testutil.CreateEvent(t, f.evtRepo, "Direct Conf", f.coordinator.ID, event.EvaluationDirect, 0)
	f.assign(t, evt.ID, evaluator)
	art, ver := testutil.CreateArticle(t, f.artRepo, "Direct Paper", evt.ID, f.author.ID)

	res, err := f.svc.Record(ctx, evaluator, newEval(ver.ID, 8.46, evaluation.DecisionApproved))
	require.NoError(t, err)
	assert.True(t, res.ArticleFinalized)
	assert.Equal(t, article.StatusApproved, res.FinalStatus)
	require.NotNil(t, res.FinalGrade)
	assert.Equal(t, 8.5, *res.FinalGrade) // rounded half up to 1 decimal

	got, err := f.artRepo.GetArticle(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, article.StatusApproved, got.Status)
	require.NotNil(t, got.FinalGrade)
	assert.Equal(t, 8.5, *got.FinalGrade)
}

func TestService_Record_notAssigned(t *testing.T) {
	f := setup(t)
	evaluator := f.newEvaluator(t, "outeval1")

	evt := testutil.CreateEvent(t, f.evtRepo, "Lonely Conf", f.coordinator.ID, event.EvaluationDirect, 0)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Lonely Paper", evt.ID, f.author.ID)

	_, err := f.svc.Record(context.Background(), evaluator, newEval(ver.ID, 7, evaluation.DecisionApproved))
	assert.Equal(t, evaluation.ErrNotAssigned, errors.Cause(err))
}

func TestService_Record_upsertKeepsOnePerEvaluator(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	eval1 := f.newEvaluator(t, "upseval1")
	eval2 := f.newEvaluator(t, "upseval2")

	evt := testutil.CreateEvent(t, f.evtRepo, "Pair Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, eval1, eval2)
	art, ver := testutil.CreateArticle(t, f.artRepo, "Pair Paper", evt.ID, f.author.ID)

	res1, err := f.svc.Record(ctx, eval1, newEval(ver.ID, 3, evaluation.DecisionRejected))
	require.NoError(t, err)
	assert.False(t, res1.ArticleFinalized)

	// second submission by the same evaluator replaces, never duplicates
	res2, err := f.svc.Record(ctx, eval1, newEval(ver.ID, 9, evaluation.DecisionApproved))
	require.NoError(t, err)
	assert.False(t, res2.ArticleFinalized)
	assert.Equal(t, res1.Evaluation.ID, res2.Evaluation.ID)

	evals, err := f.evalRepo.ListForVersion(ctx, ver.ID)
	require.NoError(t, err)
	require.Len(t, evals, 1)
	assert.Equal(t, 9.0, evals[0].Grade)
	assert.Equal(t, evaluation.DecisionApproved, evals[0].Decision)

	got, err := f.artRepo.GetArticle(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, article.StatusInEvaluation, got.Status)
}

func TestService_Record_staleVersion(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "staleval1")

	evt := testutil.CreateEvent(t, f.evtRepo, "Stale Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, evaluator)
	art, ver1 := testutil.CreateArticle(t, f.artRepo, "Stale Paper", evt.ID, f.author.ID)

	require.NoError(t, f.artRepo.SetArticleStatus(ctx, art.ID, article.StatusToCorrection, nil))
	_, err := f.artSvc.CreateNewVersion(ctx, f.author, art.ID, article.NewVersion{PDFPath: "/files/v2.pdf"})
	require.NoError(t, err)

	_, err = f.svc.Record(ctx, evaluator, newEval(ver1.ID, 7, evaluation.DecisionApproved))
	assert.Equal(t, evaluation.ErrStaleVersion, errors.Cause(err))
}

func TestService_Record_roundClosed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "closeval1")

	evt := testutil.CreateEvent(t, f.evtRepo, "Closed Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, evaluator)
	art, ver := testutil.CreateArticle(t, f.artRepo, "Closed Paper", evt.ID, f.author.ID)
	require.NoError(t, f.artRepo.SetArticleStatus(ctx, art.ID, article.StatusRejected, nil))

	_, err := f.svc.Record(ctx, evaluator, newEval(ver.ID, 7, evaluation.DecisionApproved))
	assert.Equal(t, evaluation.ErrRoundClosed, errors.Cause(err))
}

func TestService_Record_panelMajority(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	eval1 := f.newEvaluator(t, "paneval1")
	eval2 := f.newEvaluator(t, "paneval2")
	eval3 := f.newEvaluator(t, "paneval3")

	evt := testutil.CreateEvent(t, f.evtRepo, "Panel Conf", f.coordinator.ID, event.EvaluationPanel, 3)
	f.assign(t, evt.ID, eval1, eval2, eval3)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Panel Paper", evt.ID, f.author.ID)

	res, err := f.svc.Record(ctx, eval1, newEval(ver.ID, 2, evaluation.DecisionRejected))
	require.NoError(t, err)
	assert.False(t, res.ArticleFinalized)

	res, err = f.svc.Record(ctx, eval2, newEval(ver.ID, 8, evaluation.DecisionApproved))
	require.NoError(t, err)
	assert.False(t, res.ArticleFinalized)

	res, err = f.svc.Record(ctx, eval3, newEval(ver.ID, 3, evaluation.DecisionRejected))
	require.NoError(t, err)
	require.True(t, res.ArticleFinalized)
	assert.Equal(t, article.StatusRejected, res.FinalStatus)
	require.NotNil(t, res.FinalGrade)
	assert.Equal(t, 4.3, *res.FinalGrade) // (2+8+3)/3 rounded
}

func TestService_Record_checklist(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "chkeval1")

	cl := testutil.CreateChecklist(t, f.evtRepo, "Quality Checklist",
		event.Question{Description: "Is the methodology sound?", Type: event.QuestionYesNo, IsRequired: true, Order: 1, IsActive: true},
		event.Question{Description: "Rate the writing", Type: event.QuestionScale, Order: 2, IsActive: true},
	)
	evt := testutil.CreateEvent(t, f.evtRepo, "Checklist Conf", f.coordinator.ID, event.EvaluationDirect, 0)
	evt.ChecklistID = cl.ID
	_, err := f.evtRepo.UpdateEvent(ctx, evt)
	require.NoError(t, err)

	f.assign(t, evt.ID, evaluator)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Checklist Paper", evt.ID, f.author.ID)

	questions, err := f.evtRepo.QueryQuestions(ctx, cl.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	t.Run("missing required response rejected", func(t *testing.T) {
		ne := newEval(ver.ID, 7, evaluation.DecisionApproved)
		_, err := f.svc.Record(ctx, evaluator, ne)
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr), "want *core.ValidationError; got %v", err)
	})

	t.Run("valid sheet recorded with the evaluation", func(t *testing.T) {
		yes := true
		four := 4
		ne := newEval(ver.ID, 7, evaluation.DecisionApproved)
		ne.ChecklistResponses = []evaluation.RawResponse{
			{QuestionID: questions[0].ID, BooleanResponse: &yes},
			{QuestionID: questions[1].ID, ScaleResponse: &four},
		}
		res, err := f.svc.Record(ctx, evaluator, ne)
		require.NoError(t, err)

		saved, err := f.evalRepo.GetEvaluation(ctx, res.Evaluation.ID, true)
		require.NoError(t, err)
		assert.Len(t, saved.Responses, 2)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	owner := f.newEvaluator(t, "owneval1")
	other := f.newEvaluator(t, "othereval1")

	evt := testutil.CreateEvent(t, f.evtRepo, "Update Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, owner, other)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Update Paper", evt.ID, f.author.ID)

	res, err := f.svc.Record(ctx, owner, newEval(ver.ID, 5, evaluation.DecisionToCorrection))
	require.NoError(t, err)

	t.Run("only the owner may update", func(t *testing.T) {
		_, err := f.svc.Update(ctx, other, res.Evaluation.ID, newEval(ver.ID, 9, evaluation.DecisionApproved))
		assert.Equal(t, evaluation.ErrNotOwner, errors.Cause(err))
	})

	t.Run("updated in place", func(t *testing.T) {
		upd, err := f.svc.Update(ctx, owner, res.Evaluation.ID, newEval(ver.ID, 9, evaluation.DecisionApproved))
		require.NoError(t, err)
		assert.Equal(t, res.Evaluation.ID, upd.Evaluation.ID)
		assert.Equal(t, 9.0, upd.Evaluation.Grade)
	})
}

func newDraft(versionID string, grade float64) evaluation.DraftEvaluation {
	return evaluation.DraftEvaluation{
		Grade:            grade,
		ArticleVersionID: versionID,
	}
}

func TestService_SaveDraft(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "drfeval1")

	evt := testutil.CreateEvent(t, f.evtRepo, "Draft Conf", f.coordinator.ID, event.EvaluationDirect, 0)
	f.assign(t, evt.ID, evaluator)
	art, ver := testutil.CreateArticle(t, f.artRepo, "Draft Paper", evt.ID, f.author.ID)

	draft, err := f.svc.SaveDraft(ctx, evaluator, newDraft(ver.ID, 6))
	require.NoError(t, err)
	assert.True(t, draft.IsDraft)
	assert.Empty(t, draft.Decision)

	// a draft on a direct event must not decide the round
	got, err := f.artRepo.GetArticle(ctx, art.ID)
	require.NoError(t, err)
	assert.Equal(t, article.StatusSubmitted, got.Status)

	// nor count as completed work
	stats, err := f.svc.Stats(ctx, evaluator)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 1, stats.Pending)

	elig, err := f.svc.CanEvaluate(ctx, evaluator, art.ID)
	require.NoError(t, err)
	assert.True(t, elig.CanEvaluate)

	// submitting promotes the draft in place and runs the round
	res, err := f.svc.Record(ctx, evaluator, newEval(ver.ID, 8, evaluation.DecisionApproved))
	require.NoError(t, err)
	assert.Equal(t, draft.ID, res.Evaluation.ID)
	assert.False(t, res.Evaluation.IsDraft)
	require.True(t, res.ArticleFinalized)
	assert.Equal(t, article.StatusApproved, res.FinalStatus)
}

func TestService_SaveDraft_partialChecklist(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "drfeval2")

	cl := testutil.CreateChecklist(t, f.evtRepo, "Draft Checklist",
		event.Question{Description: "Is the methodology sound?", Type: event.QuestionYesNo, IsRequired: true, Order: 1, IsActive: true},
		event.Question{Description: "Rate the writing", Type: event.QuestionScale, Order: 2, IsActive: true},
	)
	evt := testutil.CreateEvent(t, f.evtRepo, "Draft Checklist Conf", f.coordinator.ID, event.EvaluationPair, 0)
	evt.ChecklistID = cl.ID
	_, err := f.evtRepo.UpdateEvent(ctx, evt)
	require.NoError(t, err)

	f.assign(t, evt.ID, evaluator)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Draft Checklist Paper", evt.ID, f.author.ID)

	questions, err := f.evtRepo.QueryQuestions(ctx, cl.ID)
	require.NoError(t, err)
	require.Len(t, questions, 2)

	// the required question is still unanswered; a draft may be saved anyway
	four := 4
	de := newDraft(ver.ID, 5)
	de.ChecklistResponses = []evaluation.RawResponse{
		{QuestionID: questions[1].ID, ScaleResponse: &four},
	}
	draft, err := f.svc.SaveDraft(ctx, evaluator, de)
	require.NoError(t, err)

	saved, err := f.evalRepo.GetEvaluation(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.Len(t, saved.Responses, 1)
}

func TestService_SaveDraft_afterSubmission(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "drfeval3")

	evt := testutil.CreateEvent(t, f.evtRepo, "Demote Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, evaluator)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Demote Paper", evt.ID, f.author.ID)

	_, err := f.svc.Record(ctx, evaluator, newEval(ver.ID, 7, evaluation.DecisionApproved))
	require.NoError(t, err)

	// a judgment that already counted toward the round stays submitted
	_, err = f.svc.SaveDraft(ctx, evaluator, newDraft(ver.ID, 3))
	assert.Equal(t, evaluation.ErrAlreadySubmitted, errors.Cause(err))
}

func TestService_UpdateDraft(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	owner := f.newEvaluator(t, "drfupd1")
	other := f.newEvaluator(t, "drfupd2")

	evt := testutil.CreateEvent(t, f.evtRepo, "Draft Update Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, owner, other)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Draft Update Paper", evt.ID, f.author.ID)

	draft, err := f.svc.SaveDraft(ctx, owner, newDraft(ver.ID, 4))
	require.NoError(t, err)

	t.Run("only the owner may update", func(t *testing.T) {
		_, err := f.svc.UpdateDraft(ctx, other, draft.ID, newDraft(ver.ID, 9))
		assert.Equal(t, evaluation.ErrNotOwner, errors.Cause(err))
	})

	t.Run("updated in place", func(t *testing.T) {
		upd, err := f.svc.UpdateDraft(ctx, owner, draft.ID, newDraft(ver.ID, 9))
		require.NoError(t, err)
		assert.Equal(t, draft.ID, upd.ID)
		assert.Equal(t, 9.0, upd.Grade)
		assert.True(t, upd.IsDraft)
	})

	t.Run("submitted evaluations are no longer drafts", func(t *testing.T) {
		res, err := f.svc.Record(ctx, owner, newEval(ver.ID, 9, evaluation.DecisionApproved))
		require.NoError(t, err)
		_, err = f.svc.UpdateDraft(ctx, owner, res.Evaluation.ID, newDraft(ver.ID, 2))
		assert.Equal(t, evaluation.ErrAlreadySubmitted, errors.Cause(err))
	})
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	owner := f.newEvaluator(t, "deleval1")
	other := f.newEvaluator(t, "deleval2")

	evt := testutil.CreateEvent(t, f.evtRepo, "Delete Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, owner, other)
	art, ver := testutil.CreateArticle(t, f.artRepo, "Delete Paper", evt.ID, f.author.ID)

	res, err := f.svc.Record(ctx, owner, newEval(ver.ID, 5, evaluation.DecisionToCorrection))
	require.NoError(t, err)

	t.Run("other evaluators may not delete", func(t *testing.T) {
		err := f.svc.Delete(ctx, other, res.Evaluation.ID)
		assert.Equal(t, evaluation.ErrNotOwner, errors.Cause(err))
	})

	t.Run("removing the last submission reopens the article", func(t *testing.T) {
		got, err := f.artRepo.GetArticle(ctx, art.ID)
		require.NoError(t, err)
		require.Equal(t, article.StatusInEvaluation, got.Status)

		require.NoError(t, f.svc.Delete(ctx, owner, res.Evaluation.ID))

		_, err = f.evalRepo.GetEvaluation(ctx, res.Evaluation.ID, false)
		assert.Equal(t, evaluation.ErrNotFound, errors.Cause(err))

		got, err = f.artRepo.GetArticle(ctx, art.ID)
		require.NoError(t, err)
		assert.Equal(t, article.StatusSubmitted, got.Status)
	})

	t.Run("coordinators may delete anyone's", func(t *testing.T) {
		res, err := f.svc.Record(ctx, owner, newEval(ver.ID, 5, evaluation.DecisionToCorrection))
		require.NoError(t, err)
		assert.NoError(t, f.svc.Delete(ctx, f.coordinator, res.Evaluation.ID))
	})
}

func TestService_Delete_roundClosed(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	evaluator := f.newEvaluator(t, "deleval3")

	evt := testutil.CreateEvent(t, f.evtRepo, "Decided Conf", f.coordinator.ID, event.EvaluationDirect, 0)
	f.assign(t, evt.ID, evaluator)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Decided Paper", evt.ID, f.author.ID)

	res, err := f.svc.Record(ctx, evaluator, newEval(ver.ID, 9, evaluation.DecisionApproved))
	require.NoError(t, err)
	require.True(t, res.ArticleFinalized)

	err = f.svc.Delete(ctx, evaluator, res.Evaluation.ID)
	assert.Equal(t, evaluation.ErrRoundClosed, errors.Cause(err))
}

func TestService_ClearResponses(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	owner := f.newEvaluator(t, "clreval1")
	other := f.newEvaluator(t, "clreval2")

	cl := testutil.CreateChecklist(t, f.evtRepo, "Clear Checklist",
		event.Question{Description: "Rate the writing", Type: event.QuestionScale, Order: 1, IsActive: true},
	)
	evt := testutil.CreateEvent(t, f.evtRepo, "Clear Conf", f.coordinator.ID, event.EvaluationPair, 0)
	evt.ChecklistID = cl.ID
	_, err := f.evtRepo.UpdateEvent(ctx, evt)
	require.NoError(t, err)

	f.assign(t, evt.ID, owner, other)
	_, ver := testutil.CreateArticle(t, f.artRepo, "Clear Paper", evt.ID, f.author.ID)

	questions, err := f.evtRepo.QueryQuestions(ctx, cl.ID)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	three := 3
	de := newDraft(ver.ID, 5)
	de.ChecklistResponses = []evaluation.RawResponse{
		{QuestionID: questions[0].ID, ScaleResponse: &three},
	}
	draft, err := f.svc.SaveDraft(ctx, owner, de)
	require.NoError(t, err)

	t.Run("only the owner may clear", func(t *testing.T) {
		err := f.svc.ClearResponses(ctx, other, draft.ID)
		assert.Equal(t, evaluation.ErrNotOwner, errors.Cause(err))
	})

	t.Run("answers wiped in place", func(t *testing.T) {
		require.NoError(t, f.svc.ClearResponses(ctx, owner, draft.ID))

		saved, err := f.evalRepo.GetEvaluation(ctx, draft.ID, true)
		require.NoError(t, err)
		assert.Empty(t, saved.Responses)
		assert.True(t, saved.IsDraft)
	})
}

func TestService_CanEvaluate_afterResubmission(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	eval1 := f.newEvaluator(t, "caneval1")
	eval2 := f.newEvaluator(t, "caneval2")

	evt := testutil.CreateEvent(t, f.evtRepo, "Resub Conf", f.coordinator.ID, event.EvaluationPair, 0)
	f.assign(t, evt.ID, eval1, eval2)
	art, ver1 := testutil.CreateArticle(t, f.artRepo, "Resub Paper", evt.ID, f.author.ID)

	_, err := f.svc.Record(ctx, eval1, newEval(ver1.ID, 6, evaluation.DecisionToCorrection))
	require.NoError(t, err)
	_, err = f.svc.Record(ctx, eval2, newEval(ver1.ID, 5, evaluation.DecisionToCorrection))
	require.NoError(t, err)

	got, err := f.artRepo.GetArticle(ctx, art.ID)
	require.NoError(t, err)
	require.Equal(t, article.StatusToCorrection, got.Status)

	// awaiting correction is not a closed round: evaluators may still revise
	// their judgment of the current version
	elig, err := f.svc.CanEvaluate(ctx, eval1, art.ID)
	require.NoError(t, err)
	assert.True(t, elig.CanEvaluate)
	assert.NotEmpty(t, elig.Reason) // replaces the previous evaluation

	_, err = f.artSvc.CreateNewVersion(ctx, f.author, art.ID, article.NewVersion{PDFPath: "/files/v2.pdf"})
	require.NoError(t, err)

	// the fresh version carries no evaluations; everyone is eligible again
	elig, err = f.svc.CanEvaluate(ctx, eval1, art.ID)
	require.NoError(t, err)
	assert.True(t, elig.CanEvaluate)
	assert.Empty(t, elig.Reason)
}
