package workspace

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vnmchuo/eagleeye/internal/auth"
)

type Handler struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(store Store) *Handler {
	return &Handler{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func validDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// HandleList serves GET /api/todos?date=YYYY-MM-DD, defaulting to today.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.now().Format(DateLayout)
	} else if !validDate(date) {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	todos, err := h.store.ListTodos(r.Context(), userID, date)
	if err != nil {
		h.logger.With("component", "api.todos").Error("failed to list todos", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch todos")
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

type createTodoRequest struct {
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Date     string `json:"date"`
}

// HandleCreate serves POST /api/todos.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Priority == "" {
		req.Priority = "medium"
	}
	if !ValidPriority(req.Priority) {
		writeError(w, http.StatusBadRequest, "priority must be low, medium or high")
		return
	}
	if req.Date == "" {
		req.Date = h.now().Format(DateLayout)
	} else if !validDate(req.Date) {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	todo := &Todo{
		UserID:   userID,
		Title:    req.Title,
		Priority: req.Priority,
		Date:     req.Date,
	}
	if err := h.store.CreateTodo(r.Context(), todo); err != nil {
		h.logger.With("component", "api.todos").Error("failed to create todo", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to create todo")
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

type updateTodoRequest struct {
	ID string `json:"id"`
	TodoPatch
}

// HandleUpdate serves PATCH /api/todos with a body of {id, ...fields}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Priority != nil && !ValidPriority(*req.Priority) {
		writeError(w, http.StatusBadRequest, "priority must be low, medium or high")
		return
	}
	if req.Date != nil && !validDate(*req.Date) {
		writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		return
	}

	todo, err := h.store.UpdateTodo(r.Context(), userID, req.ID, req.TodoPatch)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Todo not found or not updated")
			return
		}
		h.logger.With("component", "api.todos").Error("failed to update todo", "error", err, "userId", userID, "todoId", req.ID)
		writeError(w, http.StatusInternalServerError, "Failed to update todo")
		return
	}

	writeJSON(w, http.StatusOK, todo)
}
