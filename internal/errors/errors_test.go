package errors

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := New(CategoryValidation, SeverityWarning, "bad input")
	require.Equal(t, "validation (warning): bad input", err.Error())

	cause := errors.New("disk full")
	wrapped := Wrap(cause, CategoryStorage, SeverityError, "write failed")
	require.Equal(t, "storage (error): write failed: disk full", wrapped.Error())
	require.ErrorIs(t, wrapped, cause)
}

func TestWithContext(t *testing.T) {
	err := ValidationError("bad mode").
		WithContext("mode", "partial").
		WithContext("allowed", "full-build, deploy-only, auto")
	require.Equal(t, "partial", err.Context["mode"])
	require.Len(t, err.Context, 2)
}

func TestCategoryHelpers(t *testing.T) {
	require.True(t, IsCategory(AuthError("nope"), CategoryAuth))
	require.False(t, IsCategory(AuthError("nope"), CategoryValidation))
	require.False(t, IsCategory(errors.New("plain"), CategoryAuth))

	require.Equal(t, CategoryNotFound, GetCategory(NotFoundError("gone")))
	require.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
}

func TestStatusCodeFor(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)

	cases := []struct {
		err  error
		code int
	}{
		{nil, http.StatusOK},
		{ValidationError("x"), http.StatusBadRequest},
		{ConfigRequired("DATABASE_URL"), http.StatusBadRequest},
		{AuthError("x"), http.StatusUnauthorized},
		{NotFoundError("x"), http.StatusNotFound},
		{LaunchError("x", nil), http.StatusBadGateway},
		{NotifyError("x", nil), http.StatusBadGateway},
		{StorageError("x", nil), http.StatusInternalServerError},
		{InternalError("x", nil), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.code, a.StatusCodeFor(tc.err))
	}
}

func TestWriteErrorResponse(t *testing.T) {
	a := NewHTTPErrorAdapter(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)

	a.WriteErrorResponse(rec, req, ValidationError("invalid request body").
		WithContext("field", "repo_url"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"invalid request body","details":{"field":"repo_url"}}`, rec.Body.String())
}
