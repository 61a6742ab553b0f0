package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "coursehub/pkg/domain-errors"
)

func TestStatusForCode(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeValidation:          http.StatusBadRequest,
		dErrors.CodeBadRequest:          http.StatusBadRequest,
		dErrors.CodeInvalidInput:        http.StatusBadRequest,
		dErrors.CodeUnauthorized:        http.StatusUnauthorized,
		dErrors.CodeForbidden:           http.StatusForbidden,
		dErrors.CodeNotFound:            http.StatusNotFound,
		dErrors.CodeConflict:            http.StatusConflict,
		dErrors.CodeConcurrencyConflict: http.StatusConflict,
		dErrors.CodeInvalidState:        http.StatusUnprocessableEntity,
		dErrors.CodeTransient:           http.StatusServiceUnavailable,
		dErrors.CodeUnavailable:         http.StatusServiceUnavailable,
		dErrors.CodeTimeout:             http.StatusGatewayTimeout,
		dErrors.CodeInternal:            http.StatusInternalServerError,
	}
	for code, want := range cases {
		require.Equal(t, want, StatusForCode(code), "code %s", code)
	}
}

func TestWriteErrorHidesWrappedCause(t *testing.T) {
	cause := errors.New("pq: connection refused to 10.0.0.5")
	err := dErrors.Wrap(cause, dErrors.CodeUnavailable, "database operation failed")

	rr := httptest.NewRecorder()
	WriteError(rr, err)

	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, "unavailable", envelope["error"])
	require.Equal(t, "database operation failed", envelope["message"])
	require.NotContains(t, rr.Body.String(), "10.0.0.5")
}

func TestWriteErrorDefaultsToInternal(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("unexpected"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.Equal(t, "internal", envelope["error"])
}
