package resp

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemyke/node-backend-sub000/ecode"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]string{"id": "a"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "a", decode(t, w)["id"])

	w = httptest.NewRecorder()
	WithStatusCode(w, http.StatusAccepted, "queued")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "queued", decode(t, w)["message"])

	w = httptest.NewRecorder()
	WithStatusCode(w, http.StatusNoContent)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestErrorMapsCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   float64
	}{
		{ecode.New(ecode.NotFound, "asset x does not exist"), http.StatusNotFound, ecode.NotFound},
		{ecode.Errorf(ecode.GenerationFailed, "render failed"), http.StatusUnprocessableEntity, ecode.GenerationFailed},
		{ecode.New(ecode.InvalidArgument, "max invalid"), http.StatusBadRequest, ecode.InvalidArgument},
		{ecode.New(ecode.Timeout, "too slow"), http.StatusGatewayTimeout, ecode.Timeout},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		Error(w, tc.err)
		assert.Equal(t, tc.status, w.Code)
		body := decode(t, w)
		assert.Equal(t, tc.code, body["code"])
		assert.Equal(t, tc.err.Error(), body["message"])
	}
}

func TestErrorHidesForeignErrors(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, errors.New("dial tcp 10.0.0.1: refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, ecode.Text(ecode.ServerErr), decode(t, w)["message"])
}

func TestFailDefaults(t *testing.T) {
	w := httptest.NewRecorder()
	Fail(w, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	Fail(w, NotFound("missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "missing", decode(t, w)["message"])
}
