package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:      http.StatusBadRequest,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindNotFound:        http.StatusNotFound,
		KindConflict:        http.StatusConflict,
		KindRateLimited:     http.StatusTooManyRequests,
		KindInternal:        http.StatusInternalServerError,
		Kind("bogus"):       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind)
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("service: %w", NotFound("idea"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "idea not found", As(err).Message)
}

func TestInternalMasksCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	assert.Equal(t, "Internal server error", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAsWrapsForeignErrors(t *testing.T) {
	e := As(errors.New("boom"))
	assert.Equal(t, KindInternal, e.Kind)
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
