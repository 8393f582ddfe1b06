package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUserAssignsUidAndDefaults(t *testing.T) {
	// given
	service := NewUserService(NewStubUserRepo())

	// when
	created, err := service.CreateUser(context.Background(), User{Username: "alice"})

	// then
	require.NoError(t, err)
	assert.NotZero(t, created.Id)
	assert.NotEmpty(t, created.Uid)
	assert.Equal(t, "UTC", created.Settings.Timezone)
	assert.Equal(t, "USD", created.Settings.Currency)
}

func TestCreateUserRejectsTakenUsername(t *testing.T) {
	// given
	service := NewUserService(NewStubUserRepo())
	_, err := service.CreateUser(context.Background(), User{Username: "alice"})
	require.NoError(t, err)

	// when
	_, err = service.CreateUser(context.Background(), User{Username: "alice"})

	// then
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestGetCurrentUserRequiresContextUser(t *testing.T) {
	// given
	service := NewUserService(NewStubUserRepo())

	// when
	_, err := service.GetCurrentUser(context.Background())

	// then
	assert.Error(t, err)
}

func TestGetCurrentUserReadsContext(t *testing.T) {
	// given
	repo := NewStubUserRepo()
	service := NewUserService(repo)
	created, err := service.CreateUser(context.Background(), User{Username: "alice"})
	require.NoError(t, err)
	ctx := WithUser(context.Background(), created)

	// when
	current, err := service.GetCurrentUser(ctx)

	// then
	require.NoError(t, err)
	assert.Equal(t, created.Id, current.Id)
	assert.Equal(t, "alice", current.Username)
}
