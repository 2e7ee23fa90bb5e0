package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/submita/submita/core"
	"github.com/submita/submita/core/article"
)

var (
	articleColumns = []string{
		"id", "title", "summary", "thematic_area", "keywords", "related_authors",
		"event_id", "author_id", "current_version", "status", "final_grade",
		"created_at", "updated_at",
	}
	versionColumns = []string{"id", "article_id", "version", "pdf_path", "file_name", "created_at"}
)

type articleRepository struct {
	db core.DBExecutor
}

var _ article.Repository = (*articleRepository)(nil)

func NewArticleRepository(db core.DB) article.Repository {
	return &articleRepository{db: db}
}

func articleSelect(columnPrefix string) sq.SelectBuilder {
	cols := make([]string, 0, len(articleColumns))
	for _, c := range articleColumns {
		cols = append(cols, columnPrefix+c)
	}
	return psql.Select(cols...).From("article a")
}

func scanArticle(row sq.RowScanner) (article.Article, error) {
	var art article.Article
	var keywords, relatedAuthors pq.StringArray
	var finalGrade null.Float64
	err := row.Scan(
		&art.ID, &art.Title, &art.Summary, &art.ThematicArea, &keywords, &relatedAuthors,
		&art.EventID, &art.AuthorID, &art.CurrentVersion, &art.Status, &finalGrade,
		&art.CreatedAt, &art.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return art, article.ErrNotFound
		}
		return art, errors.Wrap(err, "scanning article")
	}
	art.Keywords = keywords
	art.RelatedAuthors = relatedAuthors
	if finalGrade.Valid {
		art.FinalGrade = &finalGrade.Float64
	}
	return art, nil
}

func scanVersion(row sq.RowScanner) (article.Version, error) {
	var ver article.Version
	var fileName null.String
	err := row.Scan(&ver.ID, &ver.ArticleID, &ver.Version, &ver.PDFPath, &fileName, &ver.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ver, article.ErrVersionNotFound
		}
		return ver, errors.Wrap(err, "scanning version")
	}
	ver.FileName = fileName.String
	return ver, nil
}

func (repo *articleRepository) CreateArticle(ctx context.Context, art article.Article, exec ...core.DBExecutor) (article.Article, error) {
	xc := executor(repo.db, exec)

	if art.ID == "" {
		art.ID = uuid.New().String()
	}
	stmt, args, err := psql.Insert("article").
		Columns(articleColumns...).
		Values(
			art.ID, art.Title, art.Summary, art.ThematicArea,
			pq.StringArray(art.Keywords), pq.StringArray(art.RelatedAuthors),
			art.EventID, art.AuthorID, art.CurrentVersion, art.Status, art.FinalGrade,
			art.CreatedAt, art.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return article.Article{}, errors.Wrap(err, "building query")
	}
	if _, err = xc.ExecContext(ctx, stmt, args...); err != nil {
		return article.Article{}, errors.Wrap(err, "creating article")
	}
	return art, nil
}

func (repo *articleRepository) CreateVersion(ctx context.Context, ver article.Version, exec ...core.DBExecutor) (article.Version, error) {
	xc := executor(repo.db, exec)

	if ver.ID == "" {
		ver.ID = uuid.New().String()
	}
	stmt, args, err := psql.Insert("article_version").
		Columns(versionColumns...).
		Values(
			ver.ID, ver.ArticleID, ver.Version, ver.PDFPath,
			null.NewString(ver.FileName, ver.FileName != ""), ver.CreatedAt,
		).
		ToSql()
	if err != nil {
		return article.Version{}, errors.Wrap(err, "building query")
	}
	if _, err = xc.ExecContext(ctx, stmt, args...); err != nil {
		return article.Version{}, errors.Wrap(err, "creating version")
	}
	return ver, nil
}

func (repo *articleRepository) getArticle(ctx context.Context, id string, forUpdate bool, exec []core.DBExecutor) (article.Article, error) {
	xc := executor(repo.db, exec)

	q := articleSelect("").Where(sq.Eq{"id": id})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	stmt, args, err := q.ToSql()
	if err != nil {
		return article.Article{}, errors.Wrap(err, "building query")
	}
	return scanArticle(xc.QueryRowContext(ctx, stmt, args...))
}

func (repo *articleRepository) GetArticle(ctx context.Context, id string, exec ...core.DBExecutor) (article.Article, error) {
	return repo.getArticle(ctx, id, false, exec)
}

func (repo *articleRepository) GetArticleForUpdate(ctx context.Context, id string, exec ...core.DBExecutor) (article.Article, error) {
	return repo.getArticle(ctx, id, true, exec)
}

func (repo *articleRepository) GetVersion(ctx context.Context, id string, exec ...core.DBExecutor) (article.Version, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(versionColumns...).From("article_version").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return article.Version{}, errors.Wrap(err, "building query")
	}
	return scanVersion(xc.QueryRowContext(ctx, stmt, args...))
}

func (repo *articleRepository) GetCurrentVersion(ctx context.Context, articleID string, exec ...core.DBExecutor) (article.Version, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(
		"v.id", "v.article_id", "v.version", "v.pdf_path", "v.file_name", "v.created_at",
	).
		From("article_version v").
		Join("article a ON a.id = v.article_id AND a.current_version = v.version").
		Where(sq.Eq{"v.article_id": articleID}).
		ToSql()
	if err != nil {
		return article.Version{}, errors.Wrap(err, "building query")
	}
	return scanVersion(xc.QueryRowContext(ctx, stmt, args...))
}

func (repo *articleRepository) QueryArticles(
	ctx context.Context,
	filter *article.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]article.Article, error) {
	xc := executor(repo.db, exec)

	q := articleSelect("a.")
	if filter != nil {
		if filter.Search != "" {
			pattern := searchPattern(filter.Search)
			q = q.Where(sq.Or{sq.ILike{"a.title": pattern}, sq.ILike{"a.thematic_area": pattern}})
		}
		if filter.Status != "" {
			q = q.Where(sq.Eq{"a.status": filter.Status})
		}
		if filter.EventID != "" {
			q = q.Where(sq.Eq{"a.event_id": filter.EventID})
		}
		if filter.AuthorID != "" {
			q = q.Where(sq.Eq{"a.author_id": filter.AuthorID})
		}
		if filter.EvaluatorID != "" {
			q = q.Join("event_evaluator ee ON ee.event_id = a.event_id").
				Where(sq.Eq{"ee.user_id": filter.EvaluatorID})
		}
	}
	if len(ordering) == 0 {
		q = q.OrderBy("a.created_at DESC")
	}
	for _, ord := range ordering {
		q = q.OrderBy("a." + ord.String())
	}

	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying articles")
	}
	defer func() { _ = rows.Close() }()

	arts := make([]article.Article, 0)
	for rows.Next() {
		art, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		arts = append(arts, art)
	}
	return arts, errors.Wrap(rows.Err(), "querying articles")
}

func (repo *articleRepository) QueryVersions(ctx context.Context, articleID string, exec ...core.DBExecutor) ([]article.Version, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Select(versionColumns...).From("article_version").
		Where(sq.Eq{"article_id": articleID}).
		OrderBy("version ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows, err := xc.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying versions")
	}
	defer func() { _ = rows.Close() }()

	vers := make([]article.Version, 0)
	for rows.Next() {
		ver, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		vers = append(vers, ver)
	}
	return vers, errors.Wrap(rows.Err(), "querying versions")
}

func (repo *articleRepository) UpdateArticle(ctx context.Context, art article.Article, exec ...core.DBExecutor) (article.Article, error) {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Update("article").
		Set("title", art.Title).
		Set("summary", art.Summary).
		Set("thematic_area", art.ThematicArea).
		Set("keywords", pq.StringArray(art.Keywords)).
		Set("related_authors", pq.StringArray(art.RelatedAuthors)).
		Set("current_version", art.CurrentVersion).
		Set("status", art.Status).
		Set("final_grade", art.FinalGrade).
		Set("updated_at", art.UpdatedAt).
		Where(sq.Eq{"id": art.ID}).
		ToSql()
	if err != nil {
		return article.Article{}, errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return article.Article{}, errors.Wrap(err, "updating article")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return article.Article{}, article.ErrNotFound
	}
	return art, nil
}

func (repo *articleRepository) SetArticleStatus(
	ctx context.Context,
	id string,
	status article.Status,
	finalGrade *float64,
	exec ...core.DBExecutor,
) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Update("article").
		Set("status", status).
		Set("final_grade", finalGrade).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := xc.ExecContext(ctx, stmt, args...)
	if err != nil {
		return errors.Wrap(err, "setting article status")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return article.ErrNotFound
	}
	return nil
}

func (repo *articleRepository) DeleteArticle(ctx context.Context, id string, exec ...core.DBExecutor) error {
	xc := executor(repo.db, exec)

	stmt, args, err := psql.Delete("article").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = xc.ExecContext(ctx, stmt, args...)
	return errors.Wrap(err, "deleting article")
}
