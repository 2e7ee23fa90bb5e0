package evaluation

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
)

var (
	// errors
	ErrNotFound    = errors.New("evaluation not found")
	ErrNotAssigned = errors.New("evaluator is not assigned to this article's event")
	ErrNotOwner    = errors.New("evaluation belongs to another evaluator")
	ErrNotVisible  = errors.New("evaluations of this article are not visible to you")

	// state conflicts
	ErrStaleVersion     = core.NewConflictError("article version is no longer the current version")
	ErrRoundClosed      = core.NewConflictError("article has reached a final decision")
	ErrAlreadySubmitted = core.NewConflictError("evaluation has already been submitted for this version")
)

type (
	Repository interface {
		// UpsertEvaluation inserts, or wholesale-replaces on conflict with the
		// (EvaluatorID, ArticleVersionID) unique pair: grade, decision, comments,
		// submission time and all checklist responses of the previous record are
		// discarded in favor of the new one.
		UpsertEvaluation(ctx context.Context, ev Evaluation, exec ...core.DBExecutor) (Evaluation, error)
		GetEvaluation(ctx context.Context, id string, withResponses bool, exec ...core.DBExecutor) (Evaluation, error)
		FindByEvaluatorAndVersion(ctx context.Context, evaluatorID, versionID string, exec ...core.DBExecutor) (Evaluation, error)
		// ListForVersion returns the version's evaluations ordered by
		// Evaluation.SubmittedAt ascending.
		ListForVersion(ctx context.Context, versionID string, exec ...core.DBExecutor) ([]Evaluation, error)
		// QueryEvaluations applies AND operation on available QueryFilter fields.
		// QueryFilter.ArticleID matches evaluations of any version of the article.
		QueryEvaluations(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Evaluation, error)
		// DeleteEvaluation removes the evaluation and its checklist responses.
		DeleteEvaluation(ctx context.Context, id string, exec ...core.DBExecutor) error
		// DeleteResponses removes all checklist responses of the evaluation,
		// leaving the evaluation itself in place.
		DeleteResponses(ctx context.Context, evaluationID string, exec ...core.DBExecutor) error
	}

	Service interface {
		// Record saves the acting evaluator's judgment of an article version,
		// replacing any prior one for the same version, and folds the round's
		// evaluations into the article status.
		Record(ctx context.Context, actingUser user.User, ne NewEvaluation) (Result, error)
		// Update rewrites an existing evaluation in place. The target must belong
		// to the acting evaluator and its version must still be current.
		Update(ctx context.Context, actingUser user.User, id string, ne NewEvaluation) (Result, error)
		// SaveDraft persists a work-in-progress judgment without touching the
		// round: no aggregation runs and the article status does not move.
		// Submitting through Record later promotes the draft.
		SaveDraft(ctx context.Context, actingUser user.User, de DraftEvaluation) (Evaluation, error)
		// UpdateDraft rewrites an existing draft. The target must belong to the
		// acting evaluator and must not have been submitted yet.
		UpdateDraft(ctx context.Context, actingUser user.User, id string, de DraftEvaluation) (Evaluation, error)
		// Delete removes an evaluation. Evaluators may delete their own,
		// coordinators anyone's, as long as the article is not decided.
		Delete(ctx context.Context, actingUser user.User, id string) error
		// ClearResponses wipes the evaluation's checklist answers in place.
		ClearResponses(ctx context.Context, actingUser user.User, id string) error
		GetByID(ctx context.Context, actingUser user.User, id string) (Evaluation, error)
		// Query lists evaluations the acting user may see. Evaluators are
		// restricted to their own; coordinators see all.
		Query(ctx context.Context, actingUser user.User, filter *QueryFilter) ([]Evaluation, error)
		// ListForArticle returns all evaluations of the article's current version.
		ListForArticle(ctx context.Context, actingUser user.User, articleID string) ([]Evaluation, error)
		CanEvaluate(ctx context.Context, actingUser user.User, articleID string) (Eligibility, error)
		Stats(ctx context.Context, actingUser user.User) (Stats, error)
	}

	service struct {
		db      core.DB
		repo    Repository
		artRepo article.Repository
		evtRepo event.Repository
		usrRepo user.Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(
	db core.DB,
	repo Repository,
	artRepo article.Repository,
	evtRepo event.Repository,
	usrRepo user.Repository,
	mailSvc core.EmailService,
	conf *core.Config,
) Service {
	return &service{
		db:      db,
		repo:    repo,
		artRepo: artRepo,
		evtRepo: evtRepo,
		usrRepo: usrRepo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) Record(ctx context.Context, actingUser user.User, ne NewEvaluation) (Result, error) {
	return svc.record(ctx, actingUser, ne, "")
}

func (svc *service) Update(ctx context.Context, actingUser user.User, id string, ne NewEvaluation) (Result, error) {
	ev, err := svc.repo.GetEvaluation(ctx, id, false)
	if err != nil {
		return Result{}, err
	}
	if ev.EvaluatorID != actingUser.ID {
		return Result{}, ErrNotOwner
	}
	if ne.ArticleVersionID != "" && ne.ArticleVersionID != ev.ArticleVersionID {
		return Result{}, core.NewValidationError(nil, core.FieldError{
			Field: "article_version_id",
			Error: "an evaluation cannot be moved to another version",
		})
	}
	ne.ArticleVersionID = ev.ArticleVersionID
	return svc.record(ctx, actingUser, ne, ev.ID)
}

// record runs the whole write path in one transaction, with the article row
// locked: concurrent evaluators serialize here so the aggregate each of them
// derives accounts for the other's write.
func (svc *service) record(ctx context.Context, actingUser user.User, ne NewEvaluation, id string) (Result, error) {
	var res Result
	var art article.Article
	err := core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		ver, err := svc.artRepo.GetVersion(ctx, ne.ArticleVersionID, tx)
		if err != nil {
			if errors.Cause(err) == article.ErrVersionNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "article_version_id", Error: err.Error()})
			}
			return errors.Wrap(err, "finding version")
		}
		if art, err = svc.artRepo.GetArticleForUpdate(ctx, ver.ArticleID, tx); err != nil {
			return errors.Wrap(err, "locking article")
		}
		if art.Status.IsTerminal() {
			return ErrRoundClosed
		}
		if ver.Version != art.CurrentVersion {
			return ErrStaleVersion
		}

		evt, err := svc.evtRepo.GetEvent(ctx, art.EventID, tx)
		if err != nil {
			return errors.Wrap(err, "finding event")
		}
		assigned, err := svc.evtRepo.IsEvaluatorAssigned(ctx, evt.ID, actingUser.ID, tx)
		if err != nil {
			return errors.Wrap(err, "checking assignment")
		}
		if !assigned {
			return ErrNotAssigned
		}

		resps, err := svc.validateResponses(ctx, evt, ne.ChecklistResponses, false, tx)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		ev := Evaluation{
			ID:               id,
			EvaluatorID:      actingUser.ID,
			ArticleVersionID: ver.ID,
			Grade:            ne.Grade,
			Decision:         Decision(ne.Status),
			Comments:         ne.EvaluationDescription,
			SubmittedAt:      now,
			Responses:        resps,
		}
		if res.Evaluation, err = svc.repo.UpsertEvaluation(ctx, ev, tx); err != nil {
			return errors.Wrap(err, "saving evaluation")
		}

		evals, err := svc.repo.ListForVersion(ctx, ver.ID, tx)
		if err != nil {
			return errors.Wrap(err, "listing round evaluations")
		}
		out, err := Aggregate(evt, submittedOnly(evals))
		if err != nil {
			return err
		}

		switch {
		case out.IsComplete:
			grade := out.FinalGrade
			if err = svc.artRepo.SetArticleStatus(ctx, art.ID, out.Status, &grade, tx); err != nil {
				return errors.Wrap(err, "finalizing article")
			}
			res.ArticleFinalized = true
			res.FinalStatus = out.Status
			res.FinalGrade = &grade
		case art.Status == article.StatusSubmitted:
			if err = svc.artRepo.SetArticleStatus(ctx, art.ID, article.StatusInEvaluation, nil, tx); err != nil {
				return errors.Wrap(err, "moving article to evaluation")
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.ArticleFinalized {
		go svc.sendOutcomeMail(art, res.FinalStatus, *res.FinalGrade)
	}
	return res, nil
}

// validateResponses resolves the event's checklist (if any) and validates the
// answer sheet against it. Responses without a configured checklist are a
// client error. Drafts use the partial check: required questions may still be
// unanswered.
func (svc *service) validateResponses(
	ctx context.Context,
	evt event.Event,
	raw []RawResponse,
	partial bool,
	exec ...core.DBExecutor,
) ([]ChecklistResponse, error) {
	if evt.ChecklistID == "" {
		if len(raw) > 0 {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: "checklist_responses",
				Error: "event has no checklist",
			})
		}
		return nil, nil
	}
	questions, err := svc.evtRepo.QueryQuestions(ctx, evt.ChecklistID, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "loading checklist questions")
	}
	if partial {
		return ValidateDraftResponses(questions, raw)
	}
	return ValidateResponses(questions, raw)
}

func (svc *service) SaveDraft(ctx context.Context, actingUser user.User, de DraftEvaluation) (Evaluation, error) {
	return svc.saveDraft(ctx, actingUser, de, "")
}

func (svc *service) UpdateDraft(ctx context.Context, actingUser user.User, id string, de DraftEvaluation) (Evaluation, error) {
	ev, err := svc.repo.GetEvaluation(ctx, id, false)
	if err != nil {
		return Evaluation{}, err
	}
	if ev.EvaluatorID != actingUser.ID {
		return Evaluation{}, ErrNotOwner
	}
	if !ev.IsDraft {
		return Evaluation{}, ErrAlreadySubmitted
	}
	if de.ArticleVersionID != "" && de.ArticleVersionID != ev.ArticleVersionID {
		return Evaluation{}, core.NewValidationError(nil, core.FieldError{
			Field: "article_version_id",
			Error: "a draft cannot be moved to another version",
		})
	}
	de.ArticleVersionID = ev.ArticleVersionID
	return svc.saveDraft(ctx, actingUser, de, ev.ID)
}

// saveDraft shares record's guards but stops short of the round: the draft is
// persisted and nothing else happens.
func (svc *service) saveDraft(ctx context.Context, actingUser user.User, de DraftEvaluation, id string) (Evaluation, error) {
	var saved Evaluation
	err := core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		ver, err := svc.artRepo.GetVersion(ctx, de.ArticleVersionID, tx)
		if err != nil {
			if errors.Cause(err) == article.ErrVersionNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "article_version_id", Error: err.Error()})
			}
			return errors.Wrap(err, "finding version")
		}
		art, err := svc.artRepo.GetArticleForUpdate(ctx, ver.ArticleID, tx)
		if err != nil {
			return errors.Wrap(err, "locking article")
		}
		if art.Status.IsTerminal() {
			return ErrRoundClosed
		}
		if ver.Version != art.CurrentVersion {
			return ErrStaleVersion
		}

		evt, err := svc.evtRepo.GetEvent(ctx, art.EventID, tx)
		if err != nil {
			return errors.Wrap(err, "finding event")
		}
		assigned, err := svc.evtRepo.IsEvaluatorAssigned(ctx, evt.ID, actingUser.ID, tx)
		if err != nil {
			return errors.Wrap(err, "checking assignment")
		}
		if !assigned {
			return ErrNotAssigned
		}

		// a submitted judgment already counted toward the round; it must not be
		// silently demoted back to a draft
		if existing, err := svc.repo.FindByEvaluatorAndVersion(ctx, actingUser.ID, ver.ID, tx); err == nil {
			if !existing.IsDraft {
				return ErrAlreadySubmitted
			}
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "finding previous evaluation")
		}

		resps, err := svc.validateResponses(ctx, evt, de.ChecklistResponses, true, tx)
		if err != nil {
			return err
		}

		ev := Evaluation{
			ID:               id,
			EvaluatorID:      actingUser.ID,
			ArticleVersionID: ver.ID,
			Grade:            de.Grade,
			Decision:         Decision(de.Status),
			Comments:         de.EvaluationDescription,
			IsDraft:          true,
			SubmittedAt:      time.Now().UTC(),
			Responses:        resps,
		}
		saved, err = svc.repo.UpsertEvaluation(ctx, ev, tx)
		return errors.Wrap(err, "saving draft")
	})
	if err != nil {
		return Evaluation{}, err
	}
	return saved, nil
}

func (svc *service) Delete(ctx context.Context, actingUser user.User, id string) error {
	return core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		ev, err := svc.repo.GetEvaluation(ctx, id, false, tx)
		if err != nil {
			return err
		}
		if !actingUser.IsCoordinator() && ev.EvaluatorID != actingUser.ID {
			return ErrNotOwner
		}
		ver, err := svc.artRepo.GetVersion(ctx, ev.ArticleVersionID, tx)
		if err != nil {
			return errors.Wrap(err, "finding version")
		}
		art, err := svc.artRepo.GetArticleForUpdate(ctx, ver.ArticleID, tx)
		if err != nil {
			return errors.Wrap(err, "locking article")
		}
		if art.Status.IsTerminal() {
			return ErrRoundClosed
		}
		if err = svc.repo.DeleteEvaluation(ctx, id, tx); err != nil {
			return errors.Wrap(err, "deleting evaluation")
		}

		// removing the round's last submission rolls the article back to its
		// freshly-submitted state
		if ver.Version == art.CurrentVersion && art.Status == article.StatusInEvaluation {
			evals, err := svc.repo.ListForVersion(ctx, ver.ID, tx)
			if err != nil {
				return errors.Wrap(err, "listing round evaluations")
			}
			if len(submittedOnly(evals)) == 0 {
				if err = svc.artRepo.SetArticleStatus(ctx, art.ID, article.StatusSubmitted, nil, tx); err != nil {
					return errors.Wrap(err, "reverting article status")
				}
			}
		}
		return nil
	})
}

func (svc *service) ClearResponses(ctx context.Context, actingUser user.User, id string) error {
	ev, err := svc.repo.GetEvaluation(ctx, id, false)
	if err != nil {
		return err
	}
	if ev.EvaluatorID != actingUser.ID {
		return ErrNotOwner
	}
	return errors.Wrap(svc.repo.DeleteResponses(ctx, ev.ID), "clearing responses")
}

// submittedOnly drops drafts: they never count toward a round.
func submittedOnly(evals []Evaluation) []Evaluation {
	out := make([]Evaluation, 0, len(evals))
	for _, ev := range evals {
		if !ev.IsDraft {
			out = append(out, ev)
		}
	}
	return out
}

func (svc *service) sendOutcomeMail(art article.Article, status article.Status, grade float64) {
	author, err := svc.usrRepo.GetUser(context.Background(), user.GetFilter{ID: art.AuthorID})
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(
		&core.EmailMessage{
			To:      []mail.Address{{Name: author.Name, Address: author.Email}},
			Subject: fmt.Sprintf("Evaluation result for %q", art.Title),
			BodyStr: fmt.Sprintf(
				"Hi %s,\n\nYour article %q has been evaluated.\nDecision: %s\nFinal grade: %.1f",
				author.Name, art.Title, status, grade,
			),
		},
	)
}

func (svc *service) GetByID(ctx context.Context, actingUser user.User, id string) (Evaluation, error) {
	ev, err := svc.repo.GetEvaluation(ctx, id, true)
	if err != nil {
		return Evaluation{}, err
	}
	if !actingUser.IsCoordinator() && ev.EvaluatorID != actingUser.ID {
		return Evaluation{}, ErrNotOwner
	}
	return ev, nil
}

func (svc *service) Query(ctx context.Context, actingUser user.User, filter *QueryFilter) ([]Evaluation, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	if !actingUser.IsCoordinator() {
		filter.EvaluatorID = actingUser.ID
	}
	return svc.repo.QueryEvaluations(ctx, filter)
}

// ListForArticle exposes the current round's evaluations. Coordinators always
// see them; evaluators see only their own; the author sees them once the
// round is decided.
func (svc *service) ListForArticle(ctx context.Context, actingUser user.User, articleID string) ([]Evaluation, error) {
	art, err := svc.artRepo.GetArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}
	ver, err := svc.artRepo.GetCurrentVersion(ctx, articleID)
	if err != nil {
		return nil, err
	}

	switch {
	case actingUser.IsCoordinator():
		return svc.repo.ListForVersion(ctx, ver.ID)
	case art.AuthorID == actingUser.ID:
		if art.Status.IsEvaluable() {
			return nil, ErrNotVisible
		}
		evals, err := svc.repo.ListForVersion(ctx, ver.ID)
		if err != nil {
			return nil, err
		}
		return submittedOnly(evals), nil
	case actingUser.IsEvaluator():
		ev, err := svc.repo.FindByEvaluatorAndVersion(ctx, actingUser.ID, ver.ID)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return []Evaluation{}, nil
			}
			return nil, err
		}
		return []Evaluation{ev}, nil
	}
	return nil, ErrNotVisible
}

func (svc *service) CanEvaluate(ctx context.Context, actingUser user.User, articleID string) (Eligibility, error) {
	art, err := svc.artRepo.GetArticle(ctx, articleID)
	if err != nil {
		if errors.Cause(err) == article.ErrNotFound {
			return Eligibility{Reason: err.Error()}, nil
		}
		return Eligibility{}, err
	}
	// TO_CORRECTION does not close the round: the current version can still be
	// rescored until the author resubmits. Only terminal statuses block.
	if art.Status.IsTerminal() {
		return Eligibility{Reason: "the article's evaluation round is closed"}, nil
	}

	assigned, err := svc.evtRepo.IsEvaluatorAssigned(ctx, art.EventID, actingUser.ID)
	if err != nil {
		return Eligibility{}, errors.Wrap(err, "checking assignment")
	}
	if !assigned {
		return Eligibility{Reason: ErrNotAssigned.Error()}, nil
	}

	ver, err := svc.artRepo.GetCurrentVersion(ctx, articleID)
	if err != nil {
		return Eligibility{}, err
	}
	if prev, err := svc.repo.FindByEvaluatorAndVersion(ctx, actingUser.ID, ver.ID); err == nil {
		if prev.IsDraft {
			return Eligibility{CanEvaluate: true, Reason: "you have a draft for this version"}, nil
		}
		return Eligibility{CanEvaluate: true, Reason: "submitting again replaces your previous evaluation"}, nil
	} else if errors.Cause(err) != ErrNotFound {
		return Eligibility{}, err
	}
	return Eligibility{CanEvaluate: true}, nil
}

func (svc *service) Stats(ctx context.Context, actingUser user.User) (Stats, error) {
	evals, err := svc.repo.QueryEvaluations(ctx, &QueryFilter{EvaluatorID: actingUser.ID})
	if err != nil {
		return Stats{}, err
	}

	// drafts count as work still pending, not as completed submissions
	evals = submittedOnly(evals)

	stats := Stats{Completed: len(evals)}
	var sum float64
	evaluated := make(map[string]bool, len(evals)) // version ID -> done
	for _, ev := range evals {
		sum += ev.Grade
		evaluated[ev.ArticleVersionID] = true
		switch ev.Decision {
		case DecisionApproved:
			stats.Approved++
		case DecisionRejected:
			stats.Rejected++
		default:
			stats.ToCorrection++
		}
	}
	if len(evals) > 0 {
		stats.AverageGrade = roundGrade(sum / float64(len(evals)))
	}

	arts, err := svc.artRepo.QueryArticles(ctx, &article.QueryFilter{EvaluatorID: actingUser.ID}, nil)
	if err != nil {
		return Stats{}, errors.Wrap(err, "listing assigned articles")
	}
	for _, art := range arts {
		if !art.Status.IsEvaluable() {
			continue
		}
		ver, err := svc.artRepo.GetCurrentVersion(ctx, art.ID)
		if err != nil {
			return Stats{}, errors.Wrap(err, "finding current version")
		}
		if !evaluated[ver.ID] {
			stats.Pending++
		}
	}
	stats.Total = stats.Completed + stats.Pending
	return stats, nil
}
