package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/submita/submita/core/event"
	"github.com/submita/submita/core/user"
	testutil "github.com/submita/submita/tests"
)

func eventBody(t *testing.T, name, evalType string) []byte {
	now := time.Now().UTC()
	return marchallObj(t, map[string]interface{}{
		"name":                  name,
		"description":           name + " description",
		"event_start_date":      now.Add(24 * time.Hour),
		"event_end_date":        now.Add(7 * 24 * time.Hour),
		"submission_start_date": now.Add(24 * time.Hour),
		"submission_end_date":   now.Add(5 * 24 * time.Hour),
		"evaluation_type":       evalType,
	})
}

func Test_eventApi_create(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Evt Coord", "evtcoord", "evtcoord@test.cd", "", user.CoordinatorRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Evt Student", "evtstud1", "evtstud1@test.cd", "", user.StudentRoles, true)

	tests := []httpTest{
		{name: "Auth required", body: eventBody(t, "Spring Symposium", "DIRECT"), wantCode: http.StatusUnauthorized},
		{name: "Coordinator required", body: eventBody(t, "Spring Symposium", "DIRECT"), token: getToken(t, student), wantCode: http.StatusForbidden},
		{name: "Payload required", body: marchallObj(t, map[string]interface{}{}), token: getToken(t, coordinator), wantCode: http.StatusBadRequest},
		{name: "Unknown evaluation type", body: eventBody(t, "Spring Symposium", "TRIAL"), token: getToken(t, coordinator), wantCode: http.StatusBadRequest},
		{name: "Created", body: eventBody(t, "Spring Symposium", "DIRECT"), token: getToken(t, coordinator), wantCode: http.StatusCreated},
		{name: "Panel defaults its size", body: eventBody(t, "Panel Symposium", "PANEL"), token: getToken(t, coordinator), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/events", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusCreated {
				var evt event.Event
				if err := json.Unmarshal(rec.Body.Bytes(), &evt); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if evt.Status != event.StatusActive {
					t.Errorf("status = %v; want %v", evt.Status, event.StatusActive)
				}
				if evt.CoordinatorID != coordinator.ID {
					t.Errorf("coordinator_id = %v; want %v", evt.CoordinatorID, coordinator.ID)
				}
				if evt.EvaluationType == event.EvaluationPanel && evt.PanelSize != event.DefaultPanelSize {
					t.Errorf("panel_size = %v; want %v", evt.PanelSize, event.DefaultPanelSize)
				}
			}
		})
	}
}

func Test_eventApi_evaluators(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Asg Coord", "asgcoord", "asgcoord@test.cd", "", user.CoordinatorRoles, true)
	student := testutil.CreateUser(t, usrRepo, "Asg Student", "asgstud1", "asgstud1@test.cd", "", user.StudentRoles, true)
	evaluator := testutil.CreateUser(t, usrRepo, "Asg Eval", "asgeval1", "asgeval1@test.cd", "", user.EvaluatorRoles, true)

	evt := testutil.CreateEvent(t, evtRepo, "Assignment Conf", coordinator.ID, event.EvaluationDirect, 0)

	listEvaluators := func(t *testing.T) []user.User {
		req, rec := newAuthRequest(http.MethodGet, "/v1/events/"+evt.ID+"/evaluators", getToken(t, coordinator))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		return users
	}

	tests := []httpTest{
		{
			name:     "Coordinator required",
			body:     marchallObj(t, map[string]interface{}{"user_ids": []string{evaluator.ID}}),
			token:    getToken(t, evaluator),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "Evaluator role required",
			body:     marchallObj(t, map[string]interface{}{"user_ids": []string{student.ID}}),
			token:    getToken(t, coordinator),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "Assigned",
			body:     marchallObj(t, map[string]interface{}{"user_ids": []string{evaluator.ID}}),
			token:    getToken(t, coordinator),
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/events/"+evt.ID+"/evaluators", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; data = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	t.Run("Listed once assigned", func(t *testing.T) {
		users := listEvaluators(t)
		if len(users) != 1 || users[0].ID != evaluator.ID {
			t.Errorf("evaluators = %v; want just %v", users, evaluator.ID)
		}
	})

	t.Run("Removed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/events/"+evt.ID+"/evaluators/"+evaluator.ID, getToken(t, coordinator))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		if users := listEvaluators(t); len(users) != 0 {
			t.Errorf("evaluators = %v; want none", users)
		}
	})

	t.Run("Assignment refused by the evaluator", func(t *testing.T) {
		if err := evtRepo.AssignEvaluators(context.Background(), evt.ID, []string{evaluator.ID}); err != nil {
			t.Fatalf("AssignEvaluators(): %v", err)
		}

		req, rec := newAuthRequest(http.MethodDelete, "/v1/events/"+evt.ID+"/evaluators/"+evaluator.ID, getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/events/"+evt.ID+"/evaluators/"+evaluator.ID, getToken(t, evaluator))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		if users := listEvaluators(t); len(users) != 0 {
			t.Errorf("evaluators = %v; want none", users)
		}
	})
}

func Test_eventApi_checklists(t *testing.T) {
	coordinator := testutil.CreateUser(t, usrRepo, "Chk Coord", "chkcoord", "chkcoord@test.cd", "", user.CoordinatorRoles, true)

	token := getToken(t, coordinator)
	body := marchallObj(t, map[string]interface{}{
		"name": "Review Checklist",
		"questions": []map[string]interface{}{
			{"description": "Is the abstract clear?", "type": "YES_NO", "is_required": true, "order": 1},
			{"description": "Rate the references", "type": "SCALE", "order": 2},
		},
	})

	var cl event.Checklist
	t.Run("Created with questions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/checklists", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &cl); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(cl.Questions) != 2 {
			t.Errorf("len(questions) = %v; want 2", len(cl.Questions))
		}
	})
	if cl.ID == "" {
		t.Fatal("checklist not created; cannot continue")
	}

	t.Run("Question added", func(t *testing.T) {
		qBody := marchallObj(t, map[string]interface{}{"description": "Any ethical concerns?", "type": "TEXT", "order": 3})
		req, rec := newAuthRequest(http.MethodPost, "/v1/checklists/"+cl.ID+"/questions", token, qBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("Attached to an event", func(t *testing.T) {
		evt := testutil.CreateEvent(t, evtRepo, "Checklist Conf API", coordinator.ID, event.EvaluationDirect, 0)

		upd := marchallObj(t, map[string]interface{}{"checklist_id": cl.ID})
		req, rec := newAuthRequest(http.MethodPut, "/v1/events/"+evt.ID, token, upd)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/events/"+evt.ID+"/questions", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		var questions []event.Question
		if err := json.Unmarshal(rec.Body.Bytes(), &questions); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(questions) != 3 {
			t.Errorf("len(questions) = %v; want 3", len(questions))
		}
	})

	t.Run("Question updated and removed", func(t *testing.T) {
		qID := cl.Questions[0].ID

		qBody := marchallObj(t, map[string]interface{}{"description": "Is the abstract self-contained?", "type": "YES_NO", "is_required": true, "order": 1})
		req, rec := newAuthRequest(http.MethodPut, "/v1/questions/"+qID, token, qBody)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
		var q event.Question
		if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if q.Description != "Is the abstract self-contained?" {
			t.Errorf("description = %q; want updated text", q.Description)
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/questions/"+qID, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %s", rec.Code, rec.Body.String())
		}
	})
}
