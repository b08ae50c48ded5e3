package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-qrmenu/config"
	"github.com/fekuna/omnipos-qrmenu/internal/auth"
	"github.com/fekuna/omnipos-qrmenu/internal/cache"
	"github.com/fekuna/omnipos-qrmenu/internal/database/databasetest"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/menu"
	"github.com/fekuna/omnipos-qrmenu/internal/middleware"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/server"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	undoH "github.com/fekuna/omnipos-qrmenu/internal/undo/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiKey = "test-key"

type client struct {
	t       *testing.T
	h       http.Handler
	session string
}

func newApp(t *testing.T, window time.Duration) (*App, *client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisClient(&cache.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{AllowedOrigins: []string{"*"}, RequestTimeout: 5 * time.Second},
		Auth:   config.AuthConfig{APIKeys: []string{apiKey}},
		Undo:   config.UndoConfig{Window: window, SweepInterval: time.Minute},
		Menu:   config.MenuConfig{CacheTTL: time.Minute},
	}
	a, err := New(context.Background(), cfg, logger.NewNop(), WithDB(databasetest.New(t)), WithRedis(rc))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a, &client{t: t, h: a.Handler, session: "tab-1"}
}

func (c *client) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.APIKeyHeader, apiKey)
	req.Header.Set(auth.SessionHeader, c.session)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	return w
}

func (c *client) ok(method, path string, body any, out any) *httptest.ResponseRecorder {
	c.t.Helper()
	w := c.do(method, path, body)
	require.Less(c.t, w.Code, 300, "%s %s: %s", method, path, w.Body.String())
	if out != nil {
		require.NoError(c.t, json.NewDecoder(w.Body).Decode(out))
	}
	return w
}

func (c *client) categoryNames() []string {
	c.t.Helper()
	var cats []model.Category
	c.ok(http.MethodGet, "/categories", nil, &cats)
	names := make([]string, len(cats))
	for i, cat := range cats {
		require.Equal(c.t, i, cat.SortOrder)
		names[i] = cat.Name
	}
	return names
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) httpx.ErrorResponse {
	t.Helper()
	var resp httpx.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp), w.Body.String())
	return resp
}

func TestHealthAndAuth(t *testing.T) {
	_, c := newApp(t, time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var health server.HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, map[string]string{"database": "up", "redis": "up"}, health.Checks)

	req = httptest.NewRequest(http.MethodGet, "/categories", nil)
	w = httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodGet, "/categories", nil, middleware.APIKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/menu", nil)
	w = httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "the public menu needs no key")
}

func TestDeleteUndoAndGuards(t *testing.T) {
	_, c := newApp(t, time.Hour)

	ids := map[string]int64{}
	for _, name := range []string{"A", "B", "C"} {
		var cat model.Category
		c.ok(http.MethodPost, "/categories", map[string]any{"name": name}, &cat)
		ids[name] = cat.ID
	}
	c.ok(http.MethodPost, "/products", map[string]any{"name": "Soup", "price": 3.5, "categoryId": ids["A"]}, nil)

	w := c.do(http.MethodDelete, fmt.Sprintf("/categories/%d", ids["A"]), nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, `category "A" has 1 product, cannot delete`, errorOf(t, w).Error)

	w = c.ok(http.MethodDelete, fmt.Sprintf("/categories/%d", ids["B"]), nil, nil)
	assert.NotEmpty(t, w.Header().Get(undoH.BatchHeader))
	assert.Equal(t, []string{"A", "C"}, c.categoryNames())

	var st undo.Status
	c.ok(http.MethodGet, "/categories/undo", nil, &st)
	assert.Equal(t, "pending", st.State)
	assert.True(t, st.ShowUndoButton)
	assert.Equal(t, []int64{ids["B"]}, st.IDs)

	var restored undoH.RestoreResponse
	c.ok(http.MethodPost, "/categories/undo", nil, &restored)
	assert.Equal(t, []int64{ids["B"]}, restored.Restored)
	assert.Equal(t, []string{"A", "C", "B"}, c.categoryNames())

	w = c.do(http.MethodPost, "/categories/undo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUndoIsPerSession(t *testing.T) {
	_, c := newApp(t, time.Hour)

	var p model.Product
	c.ok(http.MethodPost, "/products", map[string]any{"name": "Tea", "price": 2}, &p)
	c.ok(http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), nil, nil)

	other := &client{t: t, h: c.h, session: "tab-2"}
	w := other.do(http.MethodPost, "/products/undo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var statuses []undo.Status
	c.ok(http.MethodGet, "/undo", nil, &statuses)
	require.Len(t, statuses, 2)
	assert.Equal(t, "idle", statuses[0].State)
	assert.Equal(t, "pending", statuses[1].State)

	c.ok(http.MethodPost, "/products/undo", nil, nil)
	var back model.Product
	c.ok(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil, &back)
	assert.False(t, back.Deleted())
}

func TestExpiredBatchIsPurged(t *testing.T) {
	_, c := newApp(t, 50*time.Millisecond)

	var p model.Product
	c.ok(http.MethodPost, "/products", map[string]any{"name": "Tea", "price": 2}, &p)
	c.ok(http.MethodDelete, fmt.Sprintf("/products/%d", p.ID), nil, nil)

	require.Eventually(t, func() bool {
		return c.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil).Code == http.StatusNotFound
	}, 2*time.Second, 10*time.Millisecond)

	w := c.do(http.MethodPost, "/products/undo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTablesAndPublicMenu(t *testing.T) {
	_, c := newApp(t, time.Hour)

	var cat model.Category
	c.ok(http.MethodPost, "/categories", map[string]any{"name": "Pizza"}, &cat)
	c.ok(http.MethodPost, "/products", map[string]any{"name": "Margherita", "price": 8, "categoryId": cat.ID}, nil)

	var tbl model.Table
	c.ok(http.MethodPost, "/tables", map[string]any{"name": "Patio 1"}, &tbl)
	w := c.do(http.MethodPost, "/tables", map[string]any{"name": "patio 1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/menu/tables/Patio%201", nil)
	w = httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var m menu.Menu
	require.NoError(t, json.NewDecoder(w.Body).Decode(&m))
	require.NotNil(t, m.Table)
	assert.Equal(t, tbl.ID, m.Table.ID)
	require.Len(t, m.Categories, 1)
	require.Len(t, m.Categories[0].Products, 1)
	assert.Equal(t, "Margherita", m.Categories[0].Products[0].Name)

	var bar model.Table
	c.ok(http.MethodPost, "/tables", map[string]any{"name": "Bar"}, &bar)
	var tables []model.Table
	c.ok(http.MethodPut, "/tables/reorder", map[string]any{"tables": []map[string]int64{{"id": bar.ID, "order": 0}}}, &tables)
	require.Len(t, tables, 2)
	assert.Equal(t, "Bar", tables[0].Name)

	c.ok(http.MethodDelete, fmt.Sprintf("/tables/%d", tbl.ID), nil, nil)
	req = httptest.NewRequest(http.MethodGet, "/menu/tables/Patio%201", nil)
	w = httptest.NewRecorder()
	c.h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = c.do(http.MethodGet, "/tables/undo", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "tables have no undo window")
}

func TestRestoreEndpointReleasesPendingUndo(t *testing.T) {
	_, c := newApp(t, time.Hour)

	var cat model.Category
	c.ok(http.MethodPost, "/categories", map[string]any{"name": "A"}, &cat)
	path := fmt.Sprintf("/categories/%d", cat.ID)
	batch := map[string]any{"categories": []map[string]int64{{"id": cat.ID}}}

	c.ok(http.MethodDelete, path, nil, nil)
	c.ok(http.MethodPost, "/categories/restore", batch, nil)

	var st undo.Status
	c.ok(http.MethodGet, "/categories/undo", nil, &st)
	assert.Equal(t, "idle", st.State, "restoring by hand closes the undo window")

	w := c.ok(http.MethodDelete, path, nil, nil)
	assert.NotEmpty(t, w.Header().Get(undoH.BatchHeader))

	var restored undoH.RestoreResponse
	c.ok(http.MethodPost, "/categories/undo", nil, &restored)
	assert.Equal(t, []int64{cat.ID}, restored.Restored)

	var back model.Category
	c.ok(http.MethodGet, path, nil, &back)
	assert.False(t, back.Deleted())
	assert.Equal(t, []string{"A"}, c.categoryNames())
}

func TestRestoreFromAnotherSessionReleasesUndo(t *testing.T) {
	_, c := newApp(t, time.Hour)
	other := &client{t: t, h: c.h, session: "tab-2"}

	var cat model.Category
	c.ok(http.MethodPost, "/categories", map[string]any{"name": "A"}, &cat)
	path := fmt.Sprintf("/categories/%d", cat.ID)

	c.ok(http.MethodDelete, path, nil, nil)
	other.ok(http.MethodPost, "/categories/restore", map[string]any{"categories": []map[string]int64{{"id": cat.ID}}}, nil)
	other.ok(http.MethodDelete, path, nil, nil)

	w := c.do(http.MethodPost, "/categories/undo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "the first session no longer owns the row")

	// the first session's next delete leaves the second session's batch alone
	var b model.Category
	c.ok(http.MethodPost, "/categories", map[string]any{"name": "B"}, &b)
	c.ok(http.MethodDelete, fmt.Sprintf("/categories/%d", b.ID), nil, nil)

	other.ok(http.MethodPost, "/categories/undo", nil, nil)
	var back model.Category
	c.ok(http.MethodGet, path, nil, &back)
	assert.False(t, back.Deleted())
}

func TestPermanentDeleteReleasesPendingUndo(t *testing.T) {
	_, c := newApp(t, time.Hour)

	var cat model.Category
	c.ok(http.MethodPost, "/categories", map[string]any{"name": "A"}, &cat)
	c.ok(http.MethodDelete, fmt.Sprintf("/categories/%d", cat.ID), nil, nil)
	c.ok(http.MethodPost, "/categories/permanent-delete", map[string]any{"categories": []map[string]int64{{"id": cat.ID}}}, nil)

	var st undo.Status
	c.ok(http.MethodGet, "/categories/undo", nil, &st)
	assert.Equal(t, "idle", st.State)

	w := c.do(http.MethodPost, "/categories/undo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "nothing to undo", errorOf(t, w).Error)
}
