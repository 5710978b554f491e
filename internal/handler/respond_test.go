package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", 10, 0},
		{"?page=3", 10, 20},
		{"?page=3&limit=25", 25, 50},
		{"?limit=101", 100, 0},
		{"?limit=-5", 1, 0},
		{"?page=0", 10, 0},
		{"?page=x&limit=y", 10, 0},
		{"?page=9223372036854775807&limit=50", 50, 2147483600},
		{"?page=99999999999999999999", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			limit, offset := page(r, 10, 100)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, http.StatusConflict, codeConflict, "taken")

	res := w.Result()
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	assert.Equal(t, errorDetail{Code: "CONFLICT", HTTP: 409, Message: "taken"}, requireError(t, res, http.StatusConflict, codeConflict))
}
