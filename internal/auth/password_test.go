package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("s3cret", MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, VerifyPassword(hash, "s3cret"))
	assert.Error(t, VerifyPassword(hash, "S3cret"))
	assert.Error(t, VerifyPassword("", "s3cret"))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", MinCost)
	assert.Error(t, err)
}

func TestHashOutOfRangeCostFallsBack(t *testing.T) {
	hash, err := HashPassword("pw", 1)
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "pw"))
}

func TestAccountContext(t *testing.T) {
	ctx := context.Background()
	_, ok := AccountIDFromContext(ctx)
	assert.False(t, ok)

	ctx = ContextWithAccount(ctx, "000000042")
	id, ok := AccountIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "000000042", id)

	assert.Equal(t, ctx, ContextWithAccount(ctx, ""))
}
