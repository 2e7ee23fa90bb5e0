package article

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("article not found")
	ErrVersionNotFound = errors.New("article version not found")
	ErrNotAuthor       = errors.New("article belongs to another author")

	// state conflicts
	ErrVersionNotAllowed = core.NewConflictError("a new version is only allowed when the article awaits correction")
	ErrArticleLocked     = core.NewConflictError("article can no longer be edited")
	ErrSubmissionClosed  = core.NewConflictError("event is not accepting submissions")
)

type (
	Repository interface {
		CreateArticle(ctx context.Context, art Article, exec ...core.DBExecutor) (Article, error)
		CreateVersion(ctx context.Context, ver Version, exec ...core.DBExecutor) (Version, error)
		GetArticle(ctx context.Context, id string, exec ...core.DBExecutor) (Article, error)
		// GetArticleForUpdate locks the article row for the remainder of the
		// enclosing transaction, serializing concurrent state transitions.
		GetArticleForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (Article, error)
		GetVersion(ctx context.Context, id string, exec ...core.DBExecutor) (Version, error)
		GetCurrentVersion(ctx context.Context, articleID string, exec ...core.DBExecutor) (Version, error)
		// QueryArticles applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Article.Title or
		// Article.ThematicArea. QueryFilter.EvaluatorID restricts to articles of
		// events the evaluator is assigned to.
		QueryArticles(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Article, error)
		// QueryVersions returns all versions of an article ordered by version number.
		QueryVersions(ctx context.Context, articleID string, exec ...core.DBExecutor) ([]Version, error)
		UpdateArticle(ctx context.Context, art Article, exec ...core.DBExecutor) (Article, error)
		// SetArticleStatus writes a derived status (and final grade when terminal).
		SetArticleStatus(ctx context.Context, id string, status Status, finalGrade *float64, exec ...core.DBExecutor) error
		DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Submit(ctx context.Context, actingUser user.User, na NewArticle) (Article, error)
		GetByID(ctx context.Context, id string) (Article, error)
		QueryVisibleTo(ctx context.Context, actingUser user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Article, error)
		QueryVersions(ctx context.Context, articleID string) ([]Version, error)
		Update(ctx context.Context, actingUser user.User, id string, ua UpdateArticle) (Article, error)
		// CreateNewVersion performs the one corrective resubmission a
		// TO_CORRECTION decision permits: it increments the article's current
		// version, records the new immutable Version and reopens the round.
		CreateNewVersion(ctx context.Context, actingUser user.User, articleID string, nv NewVersion) (Article, error)
		Withdraw(ctx context.Context, actingUser user.User, id string) error
	}

	service struct {
		db      core.DB
		repo    Repository
		evtRepo event.Repository
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, evtRepo event.Repository, conf *core.Config) Service {
	return &service{
		db:      db,
		repo:    repo,
		evtRepo: evtRepo,
		conf:    conf,
	}
}

func (svc *service) Submit(ctx context.Context, actingUser user.User, na NewArticle) (Article, error) {
	evt, err := svc.evtRepo.GetEvent(ctx, na.EventID)
	if err != nil {
		if errors.Cause(err) == event.ErrNotFound {
			return Article{}, core.NewValidationError(err, core.FieldError{Field: "event_id", Error: err.Error()})
		}
		return Article{}, errors.Wrap(err, "finding event")
	}
	if !evt.SubmissionOpenAt(time.Now().UTC()) {
		return Article{}, ErrSubmissionClosed
	}

	now := time.Now().UTC()
	art := Article{
		Title:          na.Title,
		Summary:        na.Summary,
		ThematicArea:   na.ThematicArea,
		Keywords:       na.Keywords,
		RelatedAuthors: na.RelatedAuthors,
		EventID:        evt.ID,
		AuthorID:       actingUser.ID,
		CurrentVersion: 1,
		Status:         StatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if art, err = svc.repo.CreateArticle(ctx, art, tx); err != nil {
			return errors.Wrap(err, "creating article")
		}
		_, err = svc.repo.CreateVersion(ctx, Version{
			ArticleID: art.ID,
			Version:   1,
			PDFPath:   na.PDFPath,
			FileName:  na.FileName,
			CreatedAt: now,
		}, tx)
		return errors.Wrap(err, "creating version")
	})
	if err != nil {
		return Article{}, err
	}
	return art, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Article, error) {
	return svc.repo.GetArticle(ctx, id)
}

// QueryVisibleTo lists the articles the acting user may see:
// students their own, evaluators those of events they are assigned to,
// coordinators everything.
func (svc *service) QueryVisibleTo(ctx context.Context, actingUser user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Article, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	switch {
	case actingUser.IsCoordinator():
		return svc.queryForCoordinator(ctx, filter, ordering)
	case actingUser.IsEvaluator():
		return svc.queryForEvaluator(ctx, actingUser, filter, ordering)
	default:
		return svc.queryForAuthor(ctx, actingUser, filter, ordering)
	}
}

func (svc *service) queryForCoordinator(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Article, error) {
	return svc.repo.QueryArticles(ctx, filter, ordering)
}

func (svc *service) queryForEvaluator(ctx context.Context, actingUser user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Article, error) {
	filter.EvaluatorID = actingUser.ID
	filter.AuthorID = ""
	return svc.repo.QueryArticles(ctx, filter, ordering)
}

func (svc *service) queryForAuthor(ctx context.Context, actingUser user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Article, error) {
	filter.AuthorID = actingUser.ID
	filter.EvaluatorID = ""
	return svc.repo.QueryArticles(ctx, filter, ordering)
}

func (svc *service) QueryVersions(ctx context.Context, articleID string) ([]Version, error) {
	if _, err := svc.repo.GetArticle(ctx, articleID); err != nil {
		return nil, err
	}
	return svc.repo.QueryVersions(ctx, articleID)
}

func (svc *service) Update(ctx context.Context, actingUser user.User, id string, ua UpdateArticle) (Article, error) {
	art, err := svc.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if art.AuthorID != actingUser.ID {
		return Article{}, ErrNotAuthor
	}
	if art.Status != StatusSubmitted {
		return Article{}, ErrArticleLocked
	}

	if ua.Title != "" {
		art.Title = ua.Title
	}
	if ua.Summary != "" {
		art.Summary = ua.Summary
	}
	if ua.ThematicArea != "" {
		art.ThematicArea = ua.ThematicArea
	}
	if ua.Keywords != nil {
		art.Keywords = ua.Keywords
	}
	if ua.RelatedAuthors != nil {
		art.RelatedAuthors = ua.RelatedAuthors
	}
	art.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateArticle(ctx, art)
}

func (svc *service) CreateNewVersion(ctx context.Context, actingUser user.User, articleID string, nv NewVersion) (Article, error) {
	var art Article
	err := core.Atomic(ctx, svc.db, func(tx core.DBTransactor) error {
		var err error
		if art, err = svc.repo.GetArticleForUpdate(ctx, articleID, tx); err != nil {
			return err
		}
		if art.AuthorID != actingUser.ID {
			return ErrNotAuthor
		}
		if art.Status != StatusToCorrection {
			return ErrVersionNotAllowed
		}

		now := time.Now().UTC()
		if _, err = svc.repo.CreateVersion(ctx, Version{
			ArticleID: art.ID,
			Version:   art.CurrentVersion + 1,
			PDFPath:   nv.PDFPath,
			FileName:  nv.FileName,
			CreatedAt: now,
		}, tx); err != nil {
			return errors.Wrap(err, "creating version")
		}

		// evaluations of the previous version stay stored for history but no
		// longer count: aggregation only ever reads the current version.
		art.CurrentVersion++
		art.Status = StatusInEvaluation
		art.FinalGrade = nil
		art.UpdatedAt = now
		art, err = svc.repo.UpdateArticle(ctx, art, tx)
		return errors.Wrap(err, "updating article")
	})
	if err != nil {
		return Article{}, err
	}
	return art, nil
}

func (svc *service) Withdraw(ctx context.Context, actingUser user.User, id string) error {
	art, err := svc.repo.GetArticle(ctx, id)
	if err != nil {
		return err
	}
	if art.AuthorID != actingUser.ID && !actingUser.IsCoordinator() {
		return ErrNotAuthor
	}
	return svc.repo.DeleteArticle(ctx, id)
}
