package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("bad input")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("missing")))
	assert.Equal(t, http.StatusConflict, HTTPStatus(Conflict("taken")))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(Transport(errors.New("timeout"), "db down")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(nil))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("x")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("x")))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.True(t, IsKind(Conflict("x"), KindConflict))
	assert.False(t, IsKind(Conflict("x"), KindNotFound))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotFound("layout not found")
	wrapped := fmt.Errorf("resolving default: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transport(cause, "failed to load agent")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load agent")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestIsMatchesBareKindSentinel(t *testing.T) {
	err := Validation("field '%s' is required", "name")
	assert.True(t, errors.Is(err, &Error{Kind: KindValidation}))
	assert.False(t, errors.Is(err, &Error{Kind: KindConflict}))
}

func TestMessageFormatting(t *testing.T) {
	err := Validation("field '%s' is required", "name")
	require.EqualError(t, err, "field 'name' is required")

	err = Wrap(KindConflict, errors.New("unique_violation"), "agent '%s' exists", "copilot")
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Contains(t, err.Error(), "agent 'copilot' exists")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "transport", KindTransport.String())
	assert.Equal(t, "unknown", Kind(0).String())
}
