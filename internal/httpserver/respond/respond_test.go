package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
)

type body struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	return b
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusCreated, map[string]string{"id": "rec-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	b := decodeBody(t, rec)
	assert.True(t, b.Success)
	assert.JSONEq(t, `{"id":"rec-1"}`, string(b.Data))
	assert.Nil(t, b.Error)
}

func TestError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"not found", apperr.NotFoundf("record %s not found", "r1"), http.StatusNotFound, "NOT_FOUND", "record r1 not found"},
		{"wrapped conflict", apperr.Conflict("product code taken").WithDetails(map[string]string{"recordId": "r2"}), http.StatusConflict, "CONFLICT", "product code taken"},
		{"plain error hides cause", errors.New("redis: connection pool exhausted"), http.StatusInternalServerError, "INTERNAL", "internal error"},
		{"internal hides cause", apperr.Internal("boom", errors.New("secret")), http.StatusInternalServerError, "INTERNAL", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, logger.Nop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			b := decodeBody(t, rec)
			assert.False(t, b.Success)
			require.NotNil(t, b.Error)
			assert.Equal(t, tt.code, b.Error.Code)
			assert.Equal(t, tt.message, b.Error.Message)
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestErrorStoreUnavailableSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, logger.Nop(), apperr.StoreUnavailable("store timed out", errors.New("deadline")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"x"}`, false},
		{"empty", ``, true},
		{"malformed", `{"name":`, true},
		{"unknown field", `{"name":"x","extra":1}`, true},
		{"trailing object", `{"name":"x"}{"name":"y"}`, true},
		{"too large", `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			var p payload
			err := Decode(httptest.NewRecorder(), req, &p)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "x", p.Name)
				return
			}
			assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
		})
	}
}
