package repositories

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-api/errors"
)

func Test_Seed_And_Get_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	req.NoError(repository.SeedUsers(map[string]string{"alice": "pw1", "bob": "pw2"}))

	user, err := repository.GetUser("alice")
	req.NoError(err)
	req.Equal("alice", user.ID)
	req.Equal("pw1", user.Password)
}

func Test_Get_Unknown_User(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetUser("nobody")
	req.ErrorIs(err, errors.ErrUnknownUser)
}
