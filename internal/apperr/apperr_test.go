package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("product not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{New(KindExpired, "OTP has expired"), http.StatusBadRequest},
		{New(KindTooManyAttempts, "too many"), http.StatusBadRequest},
		{New(KindInvalid, "Invalid OTP"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Unauthorized("no token"), http.StatusUnauthorized},
		{Conflict("email taken"), http.StatusConflict},
		{Internal("db error", errors.New("boom")), http.StatusInternalServerError},
		{errors.New("unclassified"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestMessageHidesInternalCause(t *testing.T) {
	assert.Equal(t, "internal server error", Message(Internal("db error", errors.New("socket closed"))))
	assert.Equal(t, "internal server error", Message(errors.New("raw")))
	assert.Equal(t, "Invalid OTP", Message(New(KindInvalid, "Invalid OTP")))
}
