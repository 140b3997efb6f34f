package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleListGoals(t *testing.T) {
	store := &mockStore{
		ListGoalsFunc: func(ctx context.Context, userID string) ([]*Goal, error) {
			if userID != "user-1" {
				t.Errorf("Unexpected user %s", userID)
			}
			return []*Goal{{ID: "g1", Title: "Launch new product", Status: GoalActive}}, nil
		},
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandleListGoals(rr, authed(httptest.NewRequest(http.MethodGet, "/api/goals", nil)))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var goals []Goal
	if err := json.NewDecoder(rr.Body).Decode(&goals); err != nil || len(goals) != 1 || goals[0].ID != "g1" {
		t.Errorf("Expected one goal, got %s", rr.Body.String())
	}
}

func TestHandleListGoals_EmptyIsArray(t *testing.T) {
	store := &mockStore{
		ListGoalsFunc: func(ctx context.Context, userID string) ([]*Goal, error) { return nil, nil },
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandleListGoals(rr, authed(httptest.NewRequest(http.MethodGet, "/api/goals", nil)))

	if got := bytes.TrimSpace(rr.Body.Bytes()); string(got) != "[]" {
		t.Errorf("Expected empty array, got %s", got)
	}
}

func TestHandleCreateGoal_Defaults(t *testing.T) {
	var created *Goal
	store := &mockStore{
		CreateGoalFunc: func(ctx context.Context, goal *Goal) error {
			created = goal
			goal.ID = "g9"
			return nil
		},
	}

	body := bytes.NewBufferString(`{"title":"  Launch new product  ","description":"spring line"}`)
	rr := httptest.NewRecorder()
	newTestHandler(store).HandleCreateGoal(rr, authed(httptest.NewRequest(http.MethodPost, "/api/goals", body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if created.Title != "Launch new product" || created.Type != GoalWeekly || created.Status != GoalActive || created.UserID != "user-1" {
		t.Errorf("Unexpected goal passed to store: %+v", created)
	}
	if want := time.Date(2026, 3, 21, 0, 0, 0, 0, time.UTC); !created.TargetDate.Equal(want) {
		t.Errorf("Expected weekly goal due %s, got %s", want, created.TargetDate)
	}
}

func TestHandleCreateGoal_MonthlyWithDate(t *testing.T) {
	var created *Goal
	store := &mockStore{
		CreateGoalFunc: func(ctx context.Context, goal *Goal) error {
			created = goal
			return nil
		},
	}

	body := bytes.NewBufferString(`{"title":"Hire assistant","type":"monthly","target_date":"2026-05-01"}`)
	rr := httptest.NewRecorder()
	newTestHandler(store).HandleCreateGoal(rr, authed(httptest.NewRequest(http.MethodPost, "/api/goals", body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if created.Type != GoalMonthly || created.TargetDate.Format(DateLayout) != "2026-05-01" {
		t.Errorf("Unexpected goal %+v", created)
	}
}

func TestHandleCreateGoal_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing title", `{"type":"weekly"}`},
		{"bad type", `{"title":"x","type":"yearly"}`},
		{"bad date", `{"title":"x","target_date":"next week"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{CreateGoalFunc: func(ctx context.Context, goal *Goal) error {
				t.Error("store should not be called")
				return nil
			}}
			rr := httptest.NewRecorder()
			newTestHandler(store).HandleCreateGoal(rr, authed(httptest.NewRequest(http.MethodPost, "/api/goals", bytes.NewBufferString(tt.body))))

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestHandleUpdateGoal_FullProgressCompletes(t *testing.T) {
	store := &mockStore{
		UpdateGoalFunc: func(ctx context.Context, userID, id string, patch GoalPatch) (*Goal, error) {
			if id != "g1" || userID != "user-1" {
				t.Errorf("Unexpected ids %s/%s", userID, id)
			}
			if patch.Progress == nil || *patch.Progress != 100 {
				t.Errorf("Expected progress 100, got %+v", patch.Progress)
			}
			if patch.Status == nil || *patch.Status != GoalCompleted {
				t.Errorf("Expected goal to be completed, got %+v", patch.Status)
			}
			return &Goal{ID: id, Progress: 100, Status: GoalCompleted}, nil
		},
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandleUpdateGoal(rr, authed(httptest.NewRequest(http.MethodPatch, "/api/goals", bytes.NewBufferString(`{"id":"g1","progress":100}`))))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestHandleUpdateGoal_PartialProgress(t *testing.T) {
	store := &mockStore{
		UpdateGoalFunc: func(ctx context.Context, userID, id string, patch GoalPatch) (*Goal, error) {
			if patch.Status != nil {
				t.Errorf("Status should be left alone, got %s", *patch.Status)
			}
			return &Goal{ID: id, Progress: *patch.Progress}, nil
		},
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandleUpdateGoal(rr, authed(httptest.NewRequest(http.MethodPatch, "/api/goals", bytes.NewBufferString(`{"id":"g1","progress":40}`))))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
}

func TestHandleUpdateGoal_Errors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		storeErr  error
		wantCode  int
		wantStore bool
	}{
		{"missing id", `{"progress":10}`, nil, http.StatusBadRequest, false},
		{"progress too high", `{"id":"g1","progress":120}`, nil, http.StatusBadRequest, false},
		{"bad status", `{"id":"g1","status":"archived"}`, nil, http.StatusBadRequest, false},
		{"empty title", `{"id":"g1","title":"  "}`, nil, http.StatusBadRequest, false},
		{"not found", `{"id":"g1","progress":10}`, ErrNotFound, http.StatusNotFound, true},
		{"store error", `{"id":"g1","progress":10}`, errors.New("db down"), http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			store := &mockStore{UpdateGoalFunc: func(ctx context.Context, userID, id string, patch GoalPatch) (*Goal, error) {
				called = true
				return nil, tt.storeErr
			}}
			rr := httptest.NewRecorder()
			newTestHandler(store).HandleUpdateGoal(rr, authed(httptest.NewRequest(http.MethodPatch, "/api/goals", bytes.NewBufferString(tt.body))))

			if rr.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, rr.Code)
			}
			if called != tt.wantStore {
				t.Errorf("Expected store called=%v, got %v", tt.wantStore, called)
			}
		})
	}
}
