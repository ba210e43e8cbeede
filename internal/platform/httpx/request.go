package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// PathID parses a positive int64 URL parameter, writing a 400 problem on failure.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		Problem(w, http.StatusBadRequest, "Validation Failed", "invalid "+name)
		return 0, false
	}
	return id, true
}

// Bind decodes and validates a JSON body, writing the problem response on failure.
func Bind(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := DecodeJSON(r, dst); err != nil {
		RespondError(w, err)
		return false
	}
	if v == nil {
		return true
	}
	if err := v.Struct(dst); err != nil {
		RespondError(w, err)
		return false
	}
	return true
}

// QueryInt64 reads an optional positive int64 query parameter.
func QueryInt64(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
