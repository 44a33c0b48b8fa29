package users

import (
	"context"
	"testing"

	"github.com/docgate/docgate/internal/models"
	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	store map[string]*models.User
}

func (f *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := f.store[username]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUserRepo) Upsert(ctx context.Context, u *models.User) (*models.User, error) {
	if f.store == nil {
		f.store = map[string]*models.User{}
	}
	f.store[u.Username] = u
	return u, nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(&fakeUserRepo{})
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "alice", u.Username)
	require.NotEqual(t, "s3cret", u.PasswordHash)

	got, err := svc.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "alice@example.com", got.Email)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc := NewService(&fakeUserRepo{})
	ctx := context.Background()
	_, err := svc.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, "alice", "wrong")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAuthenticateUnknownUser(t *testing.T) {
	svc := NewService(&fakeUserRepo{})
	got, err := svc.Authenticate(context.Background(), "nobody", "pw")
	require.NoError(t, err)
	require.Nil(t, got)
}
