package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/finsight/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]any{"ok": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}

func TestError_WithCoreError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusBadRequest, core.ErrTickerRequired)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "TICKER_REQUIRED", resp.Code)
	assert.Equal(t, core.ErrTickerRequired.Message, resp.Message)
}

func TestError_ClientErrorUsesCause(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusNotFound, core.WrapError(core.ErrNoData, fmt.Errorf("No data found for ticker: ZZZ")))

	resp := decode(t, w)
	assert.Equal(t, "NO_DATA", resp.Code)
	assert.Equal(t, "No data found for ticker: ZZZ", resp.Message)
}

func TestError_ServerErrorHidesCause(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, core.WrapError(core.ErrStoreFailed, errors.New("disk I/O error at /var/db")))

	resp := decode(t, w)
	assert.Equal(t, "STORE_FAILED", resp.Code)
	assert.NotContains(t, resp.Message, "/var/db")
}

func TestError_WithStandardError(t *testing.T) {
	w := httptest.NewRecorder()

	Error(w, http.StatusInternalServerError, errors.New("boom"))

	resp := decode(t, w)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.Equal(t, "Internal server error", resp.Message)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrTickerRequired, http.StatusBadRequest},
		{core.ErrInvalidQuantity, http.StatusBadRequest},
		{core.WrapError(core.ErrInvalidRequest, errors.New("eof")), http.StatusBadRequest},
		{core.ErrHoldingNotFound, http.StatusNotFound},
		{core.ErrNoData, http.StatusNotFound},
		{core.ErrUnauthorized, http.StatusUnauthorized},
		{core.ErrStoreFailed, http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), "%v", tt.err)
	}
}
