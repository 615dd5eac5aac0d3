package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iamsyg/artisian-dashboard/internal/event"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

// mockIdentityAdmin is a mock implementation of IdentityAdmin.
type mockIdentityAdmin struct {
	mock.Mock
}

func (m *mockIdentityAdmin) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

const protectedUID = "admin-uid"

func (f *fixture) accountService(identity IdentityAdmin) *AccountService {
	return NewAccountService(identity, f.sellers, f.producer, newTestLogger(), protectedUID)
}

func TestDeleteAccount_RemovesIdentityThenSeller(t *testing.T) {
	f := newFixture(t)
	identity := new(mockIdentityAdmin)
	ctx := context.Background()

	identity.On("DeleteUser", ctx, "user-1").Run(func(mock.Arguments) {
		assert.Empty(t, f.sellers.deleted, "seller removed before identity")
	}).Return(nil)

	require.NoError(t, f.accountService(identity).Delete(ctx, "user-1", "user-1"))

	assert.Equal(t, []string{"user-1"}, f.sellers.deleted)
	_, err := f.sellers.GetByUserID(ctx, "user-1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, []string{event.AccountDeleted}, f.sink.types())
	identity.AssertExpectations(t)
}

func TestDeleteAccount_Refusals(t *testing.T) {
	tests := []struct {
		name     string
		subject  string
		userID   string
		sentinel error
	}{
		{"missing user id", "user-1", "  ", apperrors.ErrValidation},
		{"protected account", protectedUID, protectedUID, apperrors.ErrForbidden},
		{"anonymous", "", "user-1", apperrors.ErrUnauthenticated},
		{"someone else", "user-2", "user-1", apperrors.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			identity := new(mockIdentityAdmin)

			err := f.accountService(identity).Delete(context.Background(), tt.subject, tt.userID)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), err.Error())

			identity.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
			assert.Empty(t, f.sellers.deleted)
		})
	}
}

func TestDeleteAccount_IdentityFailureKeepsSeller(t *testing.T) {
	f := newFixture(t)
	identity := new(mockIdentityAdmin)
	ctx := context.Background()

	identity.On("DeleteUser", ctx, "user-1").Return(errors.New("identity provider returned 500"))

	err := f.accountService(identity).Delete(ctx, "user-1", "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteService))

	assert.Empty(t, f.sellers.deleted)
	assert.Empty(t, f.sink.types())
}
