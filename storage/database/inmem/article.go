package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/article"
)

type articleRepository struct {
	db *DB
}

var _ article.Repository = (*articleRepository)(nil)

func NewArticleRepository(db *DB) article.Repository {
	return &articleRepository{db: db}
}

func (repo *articleRepository) CreateArticle(ctx context.Context, art article.Article, exec ...core.DBExecutor) (article.Article, error) {
	defer repo.db.lock(exec)()

	if art.ID == "" {
		art.ID = uuid.New().String()
	}
	repo.db.articles[art.ID] = &art
	return art, nil
}

func (repo *articleRepository) CreateVersion(ctx context.Context, ver article.Version, exec ...core.DBExecutor) (article.Version, error) {
	defer repo.db.lock(exec)()

	if ver.ID == "" {
		ver.ID = uuid.New().String()
	}
	repo.db.versions[ver.ID] = &ver
	return ver, nil
}

func (repo *articleRepository) GetArticle(ctx context.Context, id string, exec ...core.DBExecutor) (article.Article, error) {
	defer repo.db.rlock(exec)()
	return repo.getArticle(id)
}

// GetArticleForUpdate relies on the transaction already holding the write
// lock; there is no finer-grained row lock here.
func (repo *articleRepository) GetArticleForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (article.Article, error) {
	defer repo.db.rlock(exec)()
	return repo.getArticle(id)
}

func (repo *articleRepository) getArticle(id string) (article.Article, error) {
	if art, ok := repo.db.articles[id]; ok {
		return *art, nil
	}
	return article.Article{}, article.ErrNotFound
}

func (repo *articleRepository) GetVersion(ctx context.Context, id string, exec ...core.DBExecutor) (article.Version, error) {
	defer repo.db.rlock(exec)()

	if ver, ok := repo.db.versions[id]; ok {
		return *ver, nil
	}
	return article.Version{}, article.ErrVersionNotFound
}

func (repo *articleRepository) GetCurrentVersion(ctx context.Context, articleID string, exec ...core.DBExecutor) (article.Version, error) {
	defer repo.db.rlock(exec)()

	art, err := repo.getArticle(articleID)
	if err != nil {
		return article.Version{}, err
	}
	for _, ver := range repo.db.versions {
		if ver.ArticleID == articleID && ver.Version == art.CurrentVersion {
			return *ver, nil
		}
	}
	return article.Version{}, article.ErrVersionNotFound
}

func (repo *articleRepository) QueryArticles(
	ctx context.Context,
	filter *article.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]article.Article, error) {
	defer repo.db.rlock(exec)()

	arts := make([]article.Article, 0)
	for _, art := range repo.db.articles {
		if filter != nil && !repo.matchArticle(*art, filter) {
			continue
		}
		arts = append(arts, *art)
	}
	sort.Slice(arts, func(i, j int) bool { return arts[i].CreatedAt.After(arts[j].CreatedAt) })
	return arts, nil
}

func (repo *articleRepository) matchArticle(art article.Article, filter *article.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(art.Title), s) &&
			!strings.Contains(strings.ToLower(art.ThematicArea), s) {
			return false
		}
	}
	if filter.Status != "" && art.Status != article.Status(filter.Status) {
		return false
	}
	if filter.EventID != "" && art.EventID != filter.EventID {
		return false
	}
	if filter.AuthorID != "" && art.AuthorID != filter.AuthorID {
		return false
	}
	if filter.EvaluatorID != "" && !repo.db.evaluators[art.EventID][filter.EvaluatorID] {
		return false
	}
	return true
}

func (repo *articleRepository) QueryVersions(ctx context.Context, articleID string, exec ...core.DBExecutor) ([]article.Version, error) {
	defer repo.db.rlock(exec)()

	vers := make([]article.Version, 0)
	for _, ver := range repo.db.versions {
		if ver.ArticleID == articleID {
			vers = append(vers, *ver)
		}
	}
	sort.Slice(vers, func(i, j int) bool { return vers[i].Version < vers[j].Version })
	return vers, nil
}

func (repo *articleRepository) UpdateArticle(ctx context.Context, art article.Article, exec ...core.DBExecutor) (article.Article, error) {
	defer repo.db.lock(exec)()

	if _, ok := repo.db.articles[art.ID]; !ok {
		return article.Article{}, article.ErrNotFound
	}
	repo.db.articles[art.ID] = &art
	return art, nil
}

func (repo *articleRepository) SetArticleStatus(
	ctx context.Context,
	id string,
	status article.Status,
	finalGrade *float64,
	exec ...core.DBExecutor,
) error {
	defer repo.db.lock(exec)()

	art, ok := repo.db.articles[id]
	if !ok {
		return article.ErrNotFound
	}
	art.Status = status
	art.FinalGrade = finalGrade
	art.UpdatedAt = time.Now().UTC()
	return nil
}

func (repo *articleRepository) DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error {
	defer repo.db.lock(exec)()

	for vid, ver := range repo.db.versions {
		if ver.ArticleID == id {
			for eid, ev := range repo.db.evaluations {
				if ev.ArticleVersionID == vid {
					delete(repo.db.evaluations, eid)
				}
			}
			delete(repo.db.versions, vid)
		}
	}
	delete(repo.db.articles, id)
	return nil
}
