// Package request decodes JSON bodies, path ids and pagination parameters.
package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/faithdive/faithdive/internal/store"
)

// DefaultMaxBodySize bounds JSON request bodies
const DefaultMaxBodySize = 1 << 20

// ErrBadRequest marks malformed input that is not a field validation failure
var ErrBadRequest = errors.New("bad request")

// BadRequestError describes why a request could not be decoded
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

// Is matches ErrBadRequest
func (e *BadRequestError) Is(target error) bool { return target == ErrBadRequest }

func badRequest(format string, args ...any) error {
	return &BadRequestError{Message: fmt.Sprintf(format, args...)}
}

// DecodeJSON decodes a single JSON object from the body into target.
// Unknown fields are ignored; the body is limited to DefaultMaxBodySize.
func DecodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, DefaultMaxBodySize)
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &maxErr):
			return badRequest("request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &typeErr):
			ve := &store.ValidationError{}
			ve.Add(typeErr.Field, "must be "+jsonKind(typeErr.Type.Kind().String()))
			return ve
		default:
			return badRequest("invalid JSON: %v", err)
		}
	}

	// Check if there's additional data after the JSON object
	if decoder.More() {
		return badRequest("request body contains multiple JSON objects")
	}
	return nil
}

func jsonKind(kind string) string {
	switch {
	case strings.HasPrefix(kind, "int"), strings.HasPrefix(kind, "uint"), strings.HasPrefix(kind, "float"):
		return "a number"
	case kind == "slice":
		return "an array"
	case kind == "struct", kind == "map", kind == "ptr":
		return "an object"
	case kind == "bool":
		return "a boolean"
	default:
		return "a " + kind
	}
}

// PathID parses a positive integer path parameter
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s: %q", name, raw)
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter
func QueryInt(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		ve := &store.ValidationError{}
		ve.Add(name, "must be an integer")
		return 0, ve
	}
	return n, nil
}

// ParsePage reads skip and limit. Negative skip and a limit outside
// [1, store.MaxPageLimit] are rejected.
func ParsePage(r *http.Request) (store.Page, error) {
	ve := &store.ValidationError{}

	skip, err := QueryInt(r, "skip", 0)
	if err != nil {
		return store.Page{}, err
	}
	limit, err := QueryInt(r, "limit", store.DefaultPageLimit)
	if err != nil {
		return store.Page{}, err
	}

	if skip < 0 {
		ve.Add("skip", "must be greater than or equal to 0")
	}
	if limit < 1 || limit > store.MaxPageLimit {
		ve.Add("limit", fmt.Sprintf("must be between 1 and %d", store.MaxPageLimit))
	}
	if err := ve.OrNil(); err != nil {
		return store.Page{}, err
	}
	return store.Page{Skip: skip, Limit: limit}, nil
}
