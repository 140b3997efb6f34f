package workspace

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vnmchuo/eagleeye/internal/auth"
)

// HandleGetContext serves GET /api/context. A user without a saved context
// gets an empty one.
func (h *Handler) HandleGetContext(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	bc, err := h.store.GetBusinessContext(r.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		bc = &BusinessContext{UserID: userID, Challenges: []string{}, Strengths: []string{}}
	} else if err != nil {
		h.logger.With("component", "api.context").Error("failed to get business context", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to fetch business context")
		return
	}

	writeJSON(w, http.StatusOK, bc)
}

type contextRequest struct {
	TargetMarket string   `json:"target_market"`
	Challenges   []string `json:"challenges"`
	Strengths    []string `json:"strengths"`
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// HandlePutContext serves PUT /api/context.
func (h *Handler) HandlePutContext(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req contextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bc := &BusinessContext{
		UserID:       userID,
		TargetMarket: strings.TrimSpace(req.TargetMarket),
		Challenges:   cleanList(req.Challenges),
		Strengths:    cleanList(req.Strengths),
	}
	if err := h.store.UpsertBusinessContext(r.Context(), bc); err != nil {
		h.logger.With("component", "api.context").Error("failed to save business context", "error", err, "userId", userID)
		writeError(w, http.StatusInternalServerError, "Failed to save business context")
		return
	}

	writeJSON(w, http.StatusOK, bc)
}
