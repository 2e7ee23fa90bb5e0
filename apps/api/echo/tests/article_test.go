package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/submita/submita/core/article"
	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
	testutil "github.com/submita/submita/tests"
)

func submitBody(t *testing.T, eventID string) []byte {
	return marchallObj(t, map[string]interface{}{
		"title":         "Machine Learning in Drug Discovery",
		"summary":       "A survey of recent advances.",
		"thematic_area": "Computer Science",
		"keywords":      []string{"ml", "drugs"},
		"event_id":      eventID,
		"pdf_path":      "/files/paper.pdf",
	})
}

func Test_articleApi_submit(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Sub Coord", "subcoord", "subcoord@test.cd", "", user.CoordinatorRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Sub Student", "substud1", "substud1@test.cd", "", user.StudentRoles, true)
	evaluator := testutil.CreateUser(t, usrRepo, "Sub Eval", "subeval1", "subeval1@test.cd", "", user.EvaluatorRoles, true)

	evt := testutil.CreateEvent(t, evtRepo, "Open Conference", coordinator.ID, event.EvaluationDirect, 0)

	closed := testutil.CreateEvent(t, evtRepo, "Closed Conference", coordinator.ID, event.EvaluationDirect, 0)
	closed.Status = event.StatusInactive
	if _, err := evtRepo.UpdateEvent(context.Background(), closed); err != nil {
		t.Fatalf("UpdateEvent(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", body: submitBody(t, evt.ID), wantCode: http.StatusUnauthorized},
		{name: "Student required", body: submitBody(t, evt.ID), token: getToken(t, evaluator), wantCode: http.StatusForbidden},
		{name: "Unknown event", body: submitBody(t, "11111111-2222-4333-8444-555555555555"), token: getToken(t, student), wantCode: http.StatusBadRequest},
		{name: "Submissions closed", body: submitBody(t, closed.ID), token: getToken(t, student), wantCode: http.StatusConflict},
		{name: "Submitted", body: submitBody(t, evt.ID), token: getToken(t, student), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/articles", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusCreated {
				var art article.Article
				if err := json.Unmarshal(rec.Body.Bytes(), &art); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if art.Status != article.StatusSubmitted {
					t.Errorf("status = %v; want %v", art.Status, article.StatusSubmitted)
				}
				if art.CurrentVersion != 1 {
					t.Errorf("current_version = %v; want 1", art.CurrentVersion)
				}
				if art.AuthorID != student.ID {
					t.Errorf("author_id = %v; want %v", art.AuthorID, student.ID)
				}
			}
		})
	}
}

func Test_articleApi_update(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Upd Coord", "updcoord", "updcoord@test.cd", "", user.CoordinatorRoles, true)
	author := testutil.CreateUser(t, usrRepo, "Upd Author", "updauth1", "updauth1@test.cd", "", user.StudentRoles, true)
	other := testutil.CreateUser(t, usrRepo, "Upd Other", "updother", "updother@test.cd", "", user.StudentRoles, true)

	evt := testutil.CreateEvent(t, evtRepo, "Update Conf", coordinator.ID, event.EvaluationDirect, 0)
	art, _ := testutil.CreateArticle(t, artRepo, "Original Title", evt.ID, author.ID)

	locked, _ := testutil.CreateArticle(t, artRepo, "Locked Article", evt.ID, author.ID)
	if err := artRepo.SetArticleStatus(context.Background(), locked.ID, article.StatusInEvaluation, nil); err != nil {
		t.Fatalf("SetArticleStatus(): %v", err)
	}

	body := marchallObj(t, map[string]interface{}{"title": "Better Title"})

	tests := []httpTest{
		{name: "Auth required", path: "/v1/articles/" + art.ID, body: body, wantCode: http.StatusUnauthorized},
		{name: "Only the author may edit", path: "/v1/articles/" + art.ID, body: body, token: getToken(t, other), wantCode: http.StatusForbidden},
		{name: "Locked once in evaluation", path: "/v1/articles/" + locked.ID, body: body, token: getToken(t, author), wantCode: http.StatusConflict},
		{name: "Updated", path: "/v1/articles/" + art.ID, body: body, token: getToken(t, author), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPut, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var got article.Article
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if got.Title != "Better Title" {
					t.Errorf("title = %q; want %q", got.Title, "Better Title")
				}
			}
		})
	}
}

func Test_articleApi_createVersion(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Ver Coord", "vercoord", "vercoord@test.cd", "", user.CoordinatorRoles, true)
	author := testutil.CreateUser(t, usrRepo, "Ver Author", "verauth1", "verauth1@test.cd", "", user.StudentRoles, true)

	evt := testutil.CreateEvent(t, evtRepo, "Version Conf", coordinator.ID, event.EvaluationDirect, 0)

	fresh, _ := testutil.CreateArticle(t, artRepo, "Fresh Article", evt.ID, author.ID)
	correct, _ := testutil.CreateArticle(t, artRepo, "Correctable Article", evt.ID, author.ID)
	if err := artRepo.SetArticleStatus(context.Background(), correct.ID, article.StatusToCorrection, nil); err != nil {
		t.Fatalf("SetArticleStatus(): %v", err)
	}

	body := marchallObj(t, map[string]interface{}{"pdf_path": "/files/paper-v2.pdf"})

	tests := []httpTest{
		{name: "Only after a correction request", path: "/v1/articles/" + fresh.ID + "/versions", wantCode: http.StatusConflict},
		{name: "Resubmitted", path: "/v1/articles/" + correct.ID + "/versions", wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, getToken(t, author), body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusCreated {
				var got article.Article
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if got.CurrentVersion != 2 {
					t.Errorf("current_version = %v; want 2", got.CurrentVersion)
				}
				if got.Status != article.StatusInEvaluation {
					t.Errorf("status = %v; want %v", got.Status, article.StatusInEvaluation)
				}
			}
		})
	}
}

func Test_articleApi_retrieve(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Ret Coord", "retcoord", "retcoord@test.cd", "", user.CoordinatorRoles, true)
	author := testutil.CreateUser(t, usrRepo, "Ret Author", "retauth1", "retauth1@test.cd", "", user.StudentRoles, true)
	rival := testutil.CreateUser(t, usrRepo, "Ret Rival", "retrival", "retrival@test.cd", "", user.StudentRoles, true)
	assigned := testutil.CreateUser(t, usrRepo, "Ret Eval", "reteval1", "reteval1@test.cd", "", user.EvaluatorRoles, true)
	outsider := testutil.CreateUser(t, usrRepo, "Ret Outsider", "reteval2", "reteval2@test.cd", "", user.EvaluatorRoles, true)

	evt := testutil.CreateEvent(t, evtRepo, "Retrieve Conf", coordinator.ID, event.EvaluationDirect, 0)
	if err := evtRepo.AssignEvaluators(context.Background(), evt.ID, []string{assigned.ID}); err != nil {
		t.Fatalf("AssignEvaluators(): %v", err)
	}

	art, _ := testutil.CreateArticle(t, artRepo, "Retrievable Paper", evt.ID, author.ID)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized},
		{name: "Hidden from other authors", token: getToken(t, rival), wantCode: http.StatusNotFound},
		{name: "Hidden from unassigned evaluators", token: getToken(t, outsider), wantCode: http.StatusNotFound},
		{name: "Visible to the author", token: getToken(t, author), wantCode: http.StatusOK},
		{name: "Visible to assigned evaluators", token: getToken(t, assigned), wantCode: http.StatusOK},
		{name: "Visible to coordinators", token: getToken(t, coordinator), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/articles/"+art.ID, tt.token)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var got article.Article
				if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if got.ID != art.ID {
					t.Errorf("id = %v; want %v", got.ID, art.ID)
				}
			}
		})
	}
}

func Test_articleApi_queryVisibleTo(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Vis Coord", "viscoord", "viscoord@test.cd", "", user.CoordinatorRoles, true)
	author := testutil.CreateUser(t, usrRepo, "Vis Author", "visauth1", "visauth1@test.cd", "", user.StudentRoles, true)
	rival := testutil.CreateUser(t, usrRepo, "Vis Rival", "visrival", "visrival@test.cd", "", user.StudentRoles, true)
	evaluator := testutil.CreateUser(t, usrRepo, "Vis Eval", "viseval1", "viseval1@test.cd", "", user.EvaluatorRoles, true)

	evt := testutil.CreateEvent(t, evtRepo, "Visibility Conf", coordinator.ID, event.EvaluationDirect, 0)
	if err := evtRepo.AssignEvaluators(context.Background(), evt.ID, []string{evaluator.ID}); err != nil {
		t.Fatalf("AssignEvaluators(): %v", err)
	}

	mine, _ := testutil.CreateArticle(t, artRepo, "My Paper", evt.ID, author.ID)
	theirs, _ := testutil.CreateArticle(t, artRepo, "Their Paper", evt.ID, rival.ID)

	query := func(t *testing.T, token string) []article.Article {
		req, rec := newAuthRequest(http.MethodGet, "/v1/articles?event_id="+evt.ID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		var articles []article.Article
		if err := json.Unmarshal(rec.Body.Bytes(), &articles); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		return articles
	}

	t.Run("author sees own only", func(t *testing.T) {
		articles := query(t, getToken(t, author))
		if len(articles) != 1 || articles[0].ID != mine.ID {
			t.Errorf("articles = %v; want just %v", articles, mine.ID)
		}
	})

	t.Run("assigned evaluator sees the event's articles", func(t *testing.T) {
		articles := query(t, getToken(t, evaluator))
		if len(articles) != 2 {
			t.Errorf("len(articles) = %v; want 2", len(articles))
		}
	})

	t.Run("coordinator sees everything", func(t *testing.T) {
		articles := query(t, getToken(t, coordinator))
		found := 0
		for _, a := range articles {
			if a.ID == mine.ID || a.ID == theirs.ID {
				found++
			}
		}
		if found != 2 {
			t.Errorf("found = %v; want 2", found)
		}
	})
}
