// Package httpx holds the JSON helpers shared by every HTTP handler.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; product images travel as data URIs.
const maxBodyBytes = 8 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func WriteError(w http.ResponseWriter, status int, message string, details ...string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// StatusOf maps an error kind to its HTTP status. Conflicts are reported as
// 400 because clients treat them as a rejected request, not a state clash.
func StatusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError writes err using its apperr kind. Internal errors are logged
// and their message hidden.
func WriteAppError(w http.ResponseWriter, log logger.ZapLogger, err error) {
	status := StatusOf(err)

	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Error("request failed", zap.Error(err))
		WriteError(w, status, "Internal server error")
		return
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("kind", ae.Kind.String()), zap.Error(err))
	}
	WriteError(w, status, ae.Message, ae.Details...)
}

// DecodeJSON reads the body into dst and runs struct validation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body: %v", err)
	}
	return Validate(dst)
}

func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("invalid request: %v", err)
	}
	details := make([]string, len(verrs))
	for i, fe := range verrs {
		details[i] = describe(fe)
	}
	return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid request", Details: details}
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// ParseID reads a positive int64 URL parameter.
func ParseID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("Invalid ID supplied")
	}
	return id, nil
}

// QueryBool reads an optional boolean query parameter.
func QueryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("%s must be true or false", name)
	}
	return &b, nil
}

func NoStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
