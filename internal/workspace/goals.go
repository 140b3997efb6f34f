package workspace

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vnmchuo/eagleeye/internal/auth"
)

// HandleListGoals serves GET /api/goals, active goals first.
func (h *Handler) HandleListGoals(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	goals, err := h.store.ListGoals(r.Context(), userID)
	if err != nil {
		h.logger.With("component", "api.goals").Error("failed to list goals", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch goals")
		return
	}
	if goals == nil {
		goals = []*Goal{}
	}

	writeJSON(w, http.StatusOK, goals)
}

type createGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	TargetDate  string `json:"target_date"`
}

// defaultTargetDate is a week out for weekly goals and a month out otherwise.
func defaultTargetDate(goalType string, now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if goalType == GoalWeekly {
		return day.AddDate(0, 0, 7)
	}
	return day.AddDate(0, 1, 0)
}

// HandleCreateGoal serves POST /api/goals.
func (h *Handler) HandleCreateGoal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Type == "" {
		req.Type = GoalWeekly
	}
	if !ValidGoalType(req.Type) {
		writeError(w, http.StatusBadRequest, "type must be weekly or monthly")
		return
	}

	target := defaultTargetDate(req.Type, h.now())
	if req.TargetDate != "" {
		t, err := time.Parse(DateLayout, req.TargetDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid target_date, expected YYYY-MM-DD")
			return
		}
		target = t
	}

	goal := &Goal{
		UserID:      userID,
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Type:        req.Type,
		TargetDate:  target,
		Status:      GoalActive,
	}
	if err := h.store.CreateGoal(r.Context(), goal); err != nil {
		h.logger.With("component", "api.goals").Error("failed to create goal", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to create goal")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

type updateGoalRequest struct {
	ID string `json:"id"`
	GoalPatch
}

// HandleUpdateGoal serves PATCH /api/goals with a body of {id, ...fields}.
// Reaching 100% progress completes the goal unless a status is given.
func (h *Handler) HandleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req updateGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Progress != nil && (*req.Progress < 0 || *req.Progress > 100) {
		writeError(w, http.StatusBadRequest, "progress must be between 0 and 100")
		return
	}
	if req.Status != nil && !ValidGoalStatus(*req.Status) {
		writeError(w, http.StatusBadRequest, "status must be active or completed")
		return
	}
	if req.TargetDate != nil && !validDate(*req.TargetDate) {
		writeError(w, http.StatusBadRequest, "invalid target_date, expected YYYY-MM-DD")
		return
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			writeError(w, http.StatusBadRequest, "title cannot be empty")
			return
		}
		req.Title = &title
	}
	if req.Progress != nil && *req.Progress == 100 && req.Status == nil {
		completed := GoalCompleted
		req.Status = &completed
	}

	goal, err := h.store.UpdateGoal(r.Context(), userID, req.ID, req.GoalPatch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Goal not found or not updated")
			return
		}
		h.logger.With("component", "api.goals").Error("failed to update goal", "error", err, "userId", userID, "goalId", req.ID)
		writeError(w, http.StatusInternalServerError, "Failed to update goal")
		return
	}

	writeJSON(w, http.StatusOK, goal)
}
