package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	t.Run("typed", func(t *testing.T) {
		err := New(NotFound, "account %s not found", "A-1")
		assert.Equal(t, NotFound, KindOf(err))
		assert.Equal(t, "account A-1 not found", err.Error())
	})

	t.Run("wrapped by pkg/errors", func(t *testing.T) {
		err := errors.Wrap(New(Insufficient, "low"), "withdraw")
		assert.Equal(t, Insufficient, KindOf(err))
		assert.True(t, errors.Is(err, E(Insufficient)))
		assert.False(t, errors.Is(err, E(NotFound)))
	})

	t.Run("untyped is internal", func(t *testing.T) {
		assert.Equal(t, Internal, KindOf(errors.New("boom")))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Equal(t, Kind(""), KindOf(nil))
		assert.False(t, IsKind(nil, Internal))
	})
}

func TestWithCopiesDetails(t *testing.T) {
	base := New(Insufficient, "short")
	a := base.With("available", 2)
	b := a.With("requested", 3)

	assert.Nil(t, base.Details)
	assert.Len(t, a.Details, 1)
	require.Len(t, b.Details, 2)
	assert.Equal(t, 3, b.Details["requested"])
}

func TestStatus(t *testing.T) {
	cases := map[Kind]int{
		NotFound:            http.StatusNotFound,
		Insufficient:        http.StatusUnprocessableEntity,
		SecurityCodeInvalid: http.StatusForbidden,
		InvalidArgument:     http.StatusBadRequest,
		AlreadyExists:       http.StatusConflict,
		Internal:            http.StatusInternalServerError,
	}
	for k, want := range cases {
		got := Status(k)
		assert.Equal(t, want, got, string(k))
		if k != Internal {
			assert.Less(t, got, 500, string(k))
		}
	}
}
