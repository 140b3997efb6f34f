package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestHandleGetContext_Missing(t *testing.T) {
	store := &mockStore{}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandleGetContext(rr, authed(httptest.NewRequest(http.MethodGet, "/api/context", nil)))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var bc BusinessContext
	_ = json.NewDecoder(rr.Body).Decode(&bc)
	if bc.UserID != "user-1" || bc.Challenges == nil || len(bc.Challenges) != 0 {
		t.Errorf("Expected an empty context, got %+v", bc)
	}
}

func TestHandleGetContext_StoreError(t *testing.T) {
	store := &mockStore{
		GetBusinessContextFunc: func(ctx context.Context, userID string) (*BusinessContext, error) {
			return nil, errors.New("db down")
		},
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandleGetContext(rr, authed(httptest.NewRequest(http.MethodGet, "/api/context", nil)))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

func TestHandlePutContext(t *testing.T) {
	var saved *BusinessContext
	store := &mockStore{
		UpsertContextFunc: func(ctx context.Context, bc *BusinessContext) error {
			saved = bc
			return nil
		},
	}

	body := bytes.NewBufferString(`{"target_market":" Local cafes ","challenges":["cash flow","  ",""],"strengths":["fast delivery"]}`)
	rr := httptest.NewRecorder()
	newTestHandler(store).HandlePutContext(rr, authed(httptest.NewRequest(http.MethodPut, "/api/context", body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if saved.UserID != "user-1" || saved.TargetMarket != "Local cafes" {
		t.Errorf("Unexpected context %+v", saved)
	}
	if len(saved.Challenges) != 1 || saved.Challenges[0] != "cash flow" || len(saved.Strengths) != 1 {
		t.Errorf("Expected blank items to be dropped, got %+v", saved)
	}
}

func TestHandlePutContext_FeedsPrompt(t *testing.T) {
	var saved *BusinessContext
	store := &mockStore{
		UpsertContextFunc: func(ctx context.Context, bc *BusinessContext) error {
			saved = bc
			return nil
		},
		GetBusinessContextFunc: func(ctx context.Context, userID string) (*BusinessContext, error) {
			if saved == nil {
				return nil, ErrNotFound
			}
			return saved, nil
		},
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandlePutContext(rr, authed(httptest.NewRequest(http.MethodPut, "/api/context",
		bytes.NewBufferString(`{"target_market":"Local cafes","challenges":["hiring"]}`))))
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	prompt, err := ContextPrompt(context.Background(), store, "user-1", testNow)
	if err != nil {
		t.Fatalf("ContextPrompt failed: %v", err)
	}
	if !strings.Contains(prompt, "Local cafes") || !strings.Contains(prompt, "hiring") {
		t.Errorf("Expected saved context in prompt, got %q", prompt)
	}
}

func TestHandlePutContext_Errors(t *testing.T) {
	store := &mockStore{
		UpsertContextFunc: func(ctx context.Context, bc *BusinessContext) error {
			return errors.New("db down")
		},
	}

	rr := httptest.NewRecorder()
	newTestHandler(store).HandlePutContext(rr, authed(httptest.NewRequest(http.MethodPut, "/api/context", bytes.NewBufferString(`{`))))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad json, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	newTestHandler(store).HandlePutContext(rr, authed(httptest.NewRequest(http.MethodPut, "/api/context", bytes.NewBufferString(`{}`))))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	newTestHandler(store).HandlePutContext(rr, httptest.NewRequest(http.MethodPut, "/api/context", bytes.NewBufferString(`{}`)))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rr.Code)
	}
}

// Mock DB
type execDB struct {
	sql  string
	args []any
	err  error
}

func (m *execDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (m *execDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *execDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	m.sql = sql
	m.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), m.err
}

func TestPostgresStore_UpsertBusinessContext(t *testing.T) {
	db := &execDB{}
	store := NewPostgresStore(db)

	bc := &BusinessContext{UserID: "user-1", TargetMarket: "Local cafes"}
	if err := store.UpsertBusinessContext(context.Background(), bc); err != nil {
		t.Fatalf("UpsertBusinessContext failed: %v", err)
	}

	if !strings.Contains(db.sql, "ON CONFLICT (user_id) DO UPDATE") {
		t.Errorf("Expected an upsert, got %s", db.sql)
	}
	if challenges, ok := db.args[2].([]string); !ok || challenges == nil {
		t.Errorf("Expected empty challenges instead of NULL, got %#v", db.args[2])
	}

	db.err = errors.New("db down")
	if err := store.UpsertBusinessContext(context.Background(), bc); !errors.Is(err, db.err) {
		t.Errorf("Expected wrapped error, got %v", err)
	}
}
