package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		details []string
	}{
		{"not found", apperr.NotFound("category not found"), http.StatusNotFound, "category not found", nil},
		{"validation", apperr.Validation("name is required"), http.StatusBadRequest, "name is required", nil},
		{"conflict", apperr.Conflict("cannot delete", "a", "b"), http.StatusBadRequest, "cannot delete", []string{"a", "b"}},
		{"transaction", apperr.Transaction("failed to reorder categories", errors.New("boom")), http.StatusInternalServerError, "failed to reorder categories", nil},
		{"plain error", errors.New("db down"), http.StatusInternalServerError, "Internal server error", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteAppError(w, logger.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, tt.message, body.Error)
			assert.Equal(t, tt.details, body.Details)
		})
	}
}

type payload struct {
	Name string  `json:"name" validate:"required"`
	IDs  []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

func TestDecodeJSON(t *testing.T) {
	decode := func(body string) error {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		var p payload
		return DecodeJSON(httptest.NewRecorder(), r, &p)
	}

	assert.NoError(t, decode(`{"name":"x","ids":[1,2]}`))

	err := decode(``)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = decode(`{"name":`)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	err = decode(`{"ids":[0]}`)
	require.True(t, apperr.Is(err, apperr.KindValidation))
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Details, "name is required")
	assert.Contains(t, ae.Details, "ids[0] must be greater than 0")
}

func TestParseID(t *testing.T) {
	var got int64
	var gotErr error
	r := chi.NewRouter()
	r.Get("/things/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = ParseID(r, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	for _, bad := range []string{"abc", "0", "-3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/"+bad, nil))
		assert.True(t, apperr.Is(gotErr, apperr.KindValidation), bad)
	}
}

func TestQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?includeDeleted=true&bad=maybe", nil)

	v, err := QueryBool(r, "includeDeleted")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.True(t, *v)

	v, err = QueryBool(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = QueryBool(r, "bad")
	assert.Error(t, err)
}
