package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/game-marketplace/internal/apperror"
	"github.com/sakif/game-marketplace/internal/auth"
	"github.com/sakif/game-marketplace/internal/model"
)

// maxJSONBytes caps JSON request bodies.
const maxJSONBytes = 1 << 20

// actor returns the authenticated user, or nil for an anonymous request.
func actor(r *http.Request) *model.User {
	u, _ := auth.UserFromContext(r.Context())
	return u
}

// pathID parses the {id} URL parameter as a non-negative integer.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, apperror.ValidationFailed("id", "Bad Request: data/id must be an integer")
	}
	return id, nil
}

// decodeJSON reads one JSON object into dst. Unknown fields, trailing
// data and type mismatches are 400s. An empty body is accepted only when
// allowEmpty is set, leaving dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return apperror.ValidationFailed("body", "Bad Request: request body is required")
		}
		return bodyError(err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "Bad Request: request body must contain a single JSON object")
	}
	return nil
}

// bodyError turns an encoding/json failure into a readable 400.
func bodyError(err error) error {
	var (
		typeErr   *json.UnmarshalTypeError
		syntaxErr *json.SyntaxError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &typeErr) && typeErr.Field == "":
		return apperror.ValidationFailed("body", "Bad Request: data must be object")
	case errors.As(err, &typeErr):
		return apperror.ValidationFailed(typeErr.Field,
			fmt.Sprintf("Bad Request: data/%s must be %s", typeErr.Field, typeErr.Type))
	case errors.As(err, &syntaxErr):
		return apperror.ValidationFailed("body",
			fmt.Sprintf("Bad Request: malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &sizeErr):
		return apperror.ValidationFailed("body", "Bad Request: request body too large")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return apperror.ValidationFailed(field,
			fmt.Sprintf("Bad Request: data must NOT have additional property '%s'", field))
	default:
		return apperror.ValidationFailed("body", "Bad Request: invalid JSON body")
	}
}

// queryParser collects the typed values of a query string, remembering
// the first parse failure.
type queryParser struct {
	values url.Values
	err    error
}

func (p *queryParser) fail(name, kind string) {
	if p.err == nil {
		p.err = apperror.ValidationFailed(name, fmt.Sprintf("Bad Request: data/%s must be %s", name, kind))
	}
}

func (p *queryParser) intParam(name string) int {
	raw := p.values.Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(name, "integer")
	}
	return n
}

func (p *queryParser) int64Param(name string) *int64 {
	raw := p.values.Get(name)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(name, "integer")
		return nil
	}
	return &n
}

// int64ListParam accepts both repeated parameters (?genreIds=1&genreIds=2)
// and comma-separated values (?genreIds=1,2).
func (p *queryParser) int64ListParam(name string) []int64 {
	var out []int64
	for _, raw := range p.values[name] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				p.fail(name, "a list of integers")
				return nil
			}
			out = append(out, n)
		}
	}
	return out
}

func (p *queryParser) boolParam(name string) bool {
	raw := p.values.Get(name)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(name, "boolean")
	}
	return b
}
