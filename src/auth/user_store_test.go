package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddUserAndAuthenticate(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.AddUser("carol", "s3cret"))

	assert.NoError(t, store.Authenticate("carol", "s3cret"))
	assert.ErrorIs(t, store.Authenticate("carol", "wrong"), ErrInvalidCredentials)
	assert.ErrorIs(t, store.Authenticate("nobody", "s3cret"), ErrInvalidCredentials)
}

func TestDuplicateUsernameRejected(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.AddUser("carol", "one"))
	assert.ErrorIs(t, store.AddUser("carol", "two"), ErrUserAlreadyExists)
}

func TestUpdateUserChangesPassword(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.AddUser("carol", "old"))
	require.NoError(t, store.UpdateUser("carol", "new"))

	assert.NoError(t, store.Authenticate("carol", "new"))
	assert.ErrorIs(t, store.Authenticate("carol", "old"), ErrInvalidCredentials)

	assert.ErrorIs(t, store.UpdateUser("nobody", "x"), ErrUserNotFound)
}

func TestRemoveUser(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.AddUser("carol", "pw"))
	require.NoError(t, store.RemoveUser("carol"))

	assert.ErrorIs(t, store.Authenticate("carol", "pw"), ErrInvalidCredentials)
	assert.ErrorIs(t, store.RemoveUser("carol"), ErrUserNotFound)
}

func TestGetUserOmitsPasswordMaterial(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.AddUser("carol", "pw"))

	user, err := store.GetUser("carol")
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)
	assert.NotEmpty(t, user.ID)
	assert.Empty(t, user.PasswordHash.Hash)

	_, err = store.GetUser("nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	store := NewUserStore()
	require.NoError(t, store.AddUser("carol", "pw"))
	require.NoError(t, store.AddUser("dan", "pw"))

	assert.Equal(t, []string{"carol", "dan"}, store.ListUsers())
}

func TestSaltsDiffer(t *testing.T) {
	a, err := hashPassword("same")
	require.NoError(t, err)
	b, err := hashPassword("same")
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
	assert.True(t, verifyPassword("same", a))
	assert.True(t, verifyPassword("same", b))
	assert.False(t, verifyPassword("different", a))
}
