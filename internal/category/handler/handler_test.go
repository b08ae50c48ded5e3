package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/auth"
	"github.com/fekuna/omnipos-qrmenu/internal/category/repository"
	"github.com/fekuna/omnipos-qrmenu/internal/category/usecase"
	"github.com/fekuna/omnipos-qrmenu/internal/database/databasetest"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/middleware"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	prodrepo "github.com/fekuna/omnipos-qrmenu/internal/product/repository"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	undoH "github.com/fekuna/omnipos-qrmenu/internal/undo/handler"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (http.Handler, *undo.Registry) {
	t.Helper()
	db := databasetest.New(t)
	log := logger.NewNop()
	uc := usecase.NewCategoryUseCase(repository.NewSQLRepository(db), prodrepo.NewSQLRepository(db), nil, log)

	reg := undo.NewRegistry(undo.RegistryConfig{Window: time.Hour}, map[ordering.Kind]undo.Resolver{
		ordering.KindCategory: uc.Ordering(),
	})
	t.Cleanup(reg.Close)

	r := chi.NewRouter()
	r.Use(middleware.AdminSession)
	r.Route("/categories", func(r chi.Router) {
		r.Route("/undo", undoH.NewUndoHandler(reg, ordering.KindCategory, log).Routes)
		NewCategoryHandler(uc, reg, log).Routes(r)
	})
	return r, reg
}

func call(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.SessionHeader, "tab-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestCategoryLifecycle(t *testing.T) {
	h, reg := setup(t)

	var created []model.Category
	for _, name := range []string{"A", "B", "C"} {
		w := call(t, h, http.MethodPost, "/categories", map[string]any{"name": name})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		created = append(created, decode[model.Category](t, w))
	}
	assert.Equal(t, 2, created[2].SortOrder)

	w := call(t, h, http.MethodDelete, "/categories/"+itoa(created[1].ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(undoH.BatchHeader))
	assert.NotEmpty(t, w.Header().Get(undoH.DeadlineHeader))
	assert.True(t, decode[model.Category](t, w).Deleted())

	st := reg.Get("tab-1").Timer(ordering.KindCategory).Status()
	assert.Equal(t, []int64{created[1].ID}, st.IDs)

	w = call(t, h, http.MethodGet, "/categories", nil)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	list := decode[[]model.Category](t, w)
	require.Len(t, list, 2)
	assert.Equal(t, "C", list[1].Name)
	assert.Equal(t, 1, list[1].SortOrder)

	w = call(t, h, http.MethodPost, "/categories/undo", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = call(t, h, http.MethodGet, "/categories", nil)
	list = decode[[]model.Category](t, w)
	require.Len(t, list, 3)
	assert.Equal(t, "B", list[2].Name)
}

func TestCategoryErrors(t *testing.T) {
	h, _ := setup(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		msg    string
	}{
		{"missing name", http.MethodPost, "/categories", map[string]any{}, http.StatusBadRequest, "invalid request"},
		{"bad id", http.MethodGet, "/categories/abc", nil, http.StatusBadRequest, ""},
		{"unknown id", http.MethodGet, "/categories/42", nil, http.StatusNotFound, "category not found"},
		{"empty bulk delete", http.MethodPost, "/categories/bulk-delete", map[string]any{"categoryIds": []int64{}}, http.StatusBadRequest, ""},
		{"purge unknown", http.MethodPost, "/categories/permanent-delete", map[string]any{"categories": []map[string]int64{{"id": 9}}}, http.StatusNotFound, ""},
		{"nothing to undo", http.MethodPost, "/categories/undo", nil, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, h, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			resp := decode[httpx.ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Error)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, resp.Error)
			}
		})
	}
}

func TestBulkDeleteAndPurge(t *testing.T) {
	h, _ := setup(t)

	var ids []int64
	for _, name := range []string{"A", "B"} {
		w := call(t, h, http.MethodPost, "/categories", map[string]any{"name": name})
		ids = append(ids, decode[model.Category](t, w).ID)
	}

	w := call(t, h, http.MethodPost, "/categories/bulk-delete", map[string]any{"categoryIds": ids})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[[]model.Category](t, w), 2)

	w = call(t, h, http.MethodPost, "/categories/permanent-delete", map[string]any{
		"categories": []map[string]int64{{"id": ids[0]}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []int64{ids[0]}, decode[PurgeResponse](t, w).Purged)

	w = call(t, h, http.MethodGet, "/categories?includeDeleted=true", nil)
	list := decode[[]model.Category](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Name)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
