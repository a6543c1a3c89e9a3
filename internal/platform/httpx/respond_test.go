package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: domain", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: closed", ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: period", ErrValidation), http.StatusBadRequest},
		{ErrForbidden, http.StatusForbidden},
		{ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
	}

	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("secret internals"))
	assert.NotContains(t, rec.Body.String(), "secret internals")
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		View string `json:"view"`
	}

	var ok payload
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"view":"menu"}`))
	require.NoError(t, DecodeJSON(req, &ok))
	assert.Equal(t, "menu", ok.View)

	for _, body := range []string{`{"view":"menu","x":1}`, `{"view":"menu"}{"view":"staff"}`, `not json`, ``} {
		var p payload
		err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &p)
		assert.ErrorIs(t, err, ErrValidation, body)
		assert.True(t, IsClientError(err))
	}
}

func TestValidationProblemListsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationProblem(rec, map[string]string{"period": "must be one of: today week month"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, "must be one of: today week month", problem.Fields["period"])
}
