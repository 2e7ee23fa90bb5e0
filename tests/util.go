package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/evaluation"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateEvent persists an active event open for submissions for a week around
// now, with the given evaluation type.
func CreateEvent(
	t *testing.T,
	repo event.Repository,
	name, coordinatorID string,
	evalType event.EvaluationType,
	panelSize int,
) event.Event {
	t.Helper()

	now := time.Now().UTC()
	evt := event.Event{
		Name:                name,
		Description:         name + " description",
		EventStartDate:      now.Add(-24 * time.Hour),
		EventEndDate:        now.Add(7 * 24 * time.Hour),
		SubmissionStartDate: now.Add(-24 * time.Hour),
		SubmissionEndDate:   now.Add(7 * 24 * time.Hour),
		EvaluationType:      evalType,
		PanelSize:           panelSize,
		Status:              event.StatusActive,
		CoordinatorID:       coordinatorID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	evt, err := repo.CreateEvent(context.Background(), evt)
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return evt
}

func CreateChecklist(t *testing.T, repo event.Repository, name string, questions ...event.Question) event.Checklist {
	t.Helper()

	now := time.Now().UTC()
	cl := event.Checklist{
		Name:      name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		Questions: questions,
	}
	cl, err := repo.CreateChecklist(context.Background(), cl)
	if err != nil {
		t.Fatalf("CreateChecklist() failed: %v", err)
	}
	return cl
}

// CreateArticle persists an article with its first version and returns both.
func CreateArticle(
	t *testing.T,
	repo article.Repository,
	title, eventID, authorID string,
) (article.Article, article.Version) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	art := article.Article{
		Title:          title,
		Summary:        title + " summary",
		ThematicArea:   "Computer Science",
		Keywords:       []string{"testing"},
		EventID:        eventID,
		AuthorID:       authorID,
		CurrentVersion: 1,
		Status:         article.StatusSubmitted,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	art, err := repo.CreateArticle(ctx, art)
	if err != nil {
		t.Fatalf("CreateArticle() failed: %v", err)
	}
	ver, err := repo.CreateVersion(ctx, article.Version{
		ArticleID: art.ID,
		Version:   1,
		PDFPath:   "/files/" + art.ID + ".pdf",
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateArticle() failed: %v", err)
	}
	return art, ver
}

func CreateEvaluation(
	t *testing.T,
	repo evaluation.Repository,
	evaluatorID, versionID string,
	grade float64,
	decision evaluation.Decision,
) evaluation.Evaluation {
	t.Helper()

	now := time.Now().UTC()
	ev := evaluation.Evaluation{
		EvaluatorID:      evaluatorID,
		ArticleVersionID: versionID,
		Grade:            grade,
		Decision:         decision,
		SubmittedAt:      now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	ev, err := repo.UpsertEvaluation(context.Background(), ev)
	if err != nil {
		t.Fatalf("CreateEvaluation() failed: %v", err)
	}
	return ev
}
