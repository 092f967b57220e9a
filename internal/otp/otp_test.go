package otp

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/flora-checkout/internal/apperr"
)

func fixedCodes(codes ...string) func(int) (string, error) {
	i := 0
	return func(int) (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func setupAuthorityTest(t *testing.T, codes ...string) *Authority {
	t.Helper()
	return &Authority{Store: NewMemoryStore(), Generate: fixedCodes(codes...)}
}

func TestIssueAndValidate(t *testing.T) {
	ctx := context.Background()
	a := setupAuthorityTest(t, "1234")

	code, err := a.Issue(ctx, 7, "john")
	require.NoError(t, err)
	assert.Equal(t, "1234", code)

	ok, err := a.Validate(ctx, "1234", "john")
	require.NoError(t, err)
	assert.True(t, ok)

	// validation does not consume the code
	ok, err = a.Validate(ctx, "1234", "john")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Validate(ctx, "1234", "jane")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.Validate(ctx, "9999", "john")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenewInvalidatesPreviousCode(t *testing.T) {
	ctx := context.Background()
	a := setupAuthorityTest(t, "1234", "5678")

	_, err := a.Issue(ctx, 7, "john")
	require.NoError(t, err)
	_, err = a.Issue(ctx, 7, "john")
	require.NoError(t, err)

	old, err := a.Validate(ctx, "1234", "john")
	require.NoError(t, err)
	assert.False(t, old)

	fresh, err := a.Validate(ctx, "5678", "john")
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestCodesAreScopedPerUser(t *testing.T) {
	ctx := context.Background()
	a := setupAuthorityTest(t, "1111", "2222")

	_, err := a.Issue(ctx, 1, "john")
	require.NoError(t, err)
	_, err = a.Issue(ctx, 2, "jane")
	require.NoError(t, err)

	ok, _ := a.Validate(ctx, "1111", "john")
	assert.True(t, ok)
	ok, _ = a.Validate(ctx, "2222", "jane")
	assert.True(t, ok)
}

func TestIssueRequiresUsername(t *testing.T) {
	a := setupAuthorityTest(t, "1234")
	_, err := a.Issue(context.Background(), 1, "")
	assert.Equal(t, apperr.InvalidArgument, apperr.KindOf(err))
}

func TestValidateEmptyInput(t *testing.T) {
	a := setupAuthorityTest(t, "1234")
	ok, err := a.Validate(context.Background(), "", "john")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRandomCode(t *testing.T) {
	for _, digits := range []int{4, 6} {
		for i := 0; i < 200; i++ {
			c, err := RandomCode(digits)
			require.NoError(t, err)
			require.Len(t, c, digits)
			_, err = strconv.Atoi(c)
			require.NoError(t, err)
			assert.NotEqual(t, byte('0'), c[0])
		}
	}
}

func TestIssueWithDefaultGenerator(t *testing.T) {
	ctx := context.Background()
	a := &Authority{Store: NewMemoryStore(), Digits: 6}

	code, err := a.Issue(ctx, 3, "ann")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	ok, err := a.Validate(ctx, code, "ann")
	require.NoError(t, err)
	assert.True(t, ok)
}
