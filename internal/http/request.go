package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/tuanvumaihuynh/pantry-sync/internal/apperr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/auth"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/apierr"
)

const maxBodyBytes = 1 << 20

func ownerID(r *http.Request) (string, error) {
	owner, ok := auth.OwnerFromContext(r.Context())
	if !ok {
		return "", apperr.UnauthorizedErr
	}
	return owner, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id uuid.UUID
	if err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true},
	); err != nil {
		return uuid.Nil, &apierr.ParamError{ParamName: name, Err: err}
	}
	return id, nil
}

func pathString(r *http.Request, name string) (string, error) {
	var v string
	if err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true},
	); err != nil {
		return "", &apierr.ParamError{ParamName: name, Err: err}
	}
	return v, nil
}

// queryParam binds an optional query parameter into dest, leaving it
// untouched when absent.
func queryParam(r *http.Request, name string, dest any) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return &apierr.ParamError{ParamName: name, Err: err}
	}
	return nil
}

// decodeJSON decodes the request body into dst. An empty body is allowed
// when allowEmpty is set.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return &apierr.BodyError{Err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
