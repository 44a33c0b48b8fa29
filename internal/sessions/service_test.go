package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.RefreshToken] = s
	return nil
}
func (f *fakeRepo) GetByRefresh(ctx context.Context, refresh string) (*Session, error) {
	s, ok := f.store[refresh]
	if !ok {
		return nil, nil
	}
	return s, nil
}
func (f *fakeRepo) DeleteByRefresh(ctx context.Context, refresh string) error {
	delete(f.store, refresh)
	return nil
}

func TestCreateAndValidateSession(t *testing.T) {
	svc := NewService(&fakeRepo{})
	ctx := context.Background()

	refresh, err := svc.CreateSession(ctx, "alice", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, refresh)

	sess, err := svc.ValidateRefresh(ctx, refresh)
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "alice", sess.Username)

	require.NoError(t, svc.DeleteRefresh(ctx, refresh))
	sess, err = svc.ValidateRefresh(ctx, refresh)
	require.NoError(t, err)
	require.Nil(t, sess)
}

func TestValidateRefreshExpired(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	refresh, err := svc.CreateSession(ctx, "alice", -time.Minute)
	require.NoError(t, err)

	sess, err := svc.ValidateRefresh(ctx, refresh)
	require.NoError(t, err)
	require.Nil(t, sess)
	// expired session is cleaned up on validation
	require.NotContains(t, repo.store, refresh)
}
