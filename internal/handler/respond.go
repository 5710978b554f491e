package handler

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
)

const maxBodySize = 1 << 20

// maxOffset bounds list offsets so page*limit cannot wrap around.
const maxOffset = math.MaxInt32

// Error codes shared by several endpoints.
const (
	codeBadRequest   = "BAD_REQUEST"
	codeValidation   = "VALIDATION_ERROR"
	codeNotFound     = "NOT_FOUND"
	codeForbidden    = "FORBIDDEN"
	codeUnauthorized = "UNAUTHORIZED"
	codeConflict     = "CONFLICT"
	codeInternal     = "INTERNAL"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	HTTP    int    `json:"http"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, HTTP: status, Message: message}})
}

var errBadJSON = errors.New("request body must be valid JSON")

// decode reads a JSON request body into v.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errBadJSON, err.Error())
	}
	return nil
}

// page reads the page and limit query parameters. Missing or malformed
// values fall back to page 1 and defLimit; limit is clamped to [1, maxLimit].
func page(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	q := r.URL.Query()

	p, err := strconv.Atoi(q.Get("page"))
	if err != nil || p < 1 {
		p = 1
	}
	limit, err = strconv.Atoi(q.Get("limit"))
	if err != nil {
		limit = defLimit
	}
	limit = min(max(limit, 1), maxLimit)
	p = min(p, maxOffset/limit+1)

	return limit, (p - 1) * limit
}

func setTotal(w http.ResponseWriter, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
}
