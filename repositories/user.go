package repositories

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"chat-api/domain/chat"
	"chat-api/errors"
)

type IUserRepository interface {
	SeedUsers(users map[string]string) error
	GetUser(id string) (chat.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

func userKey(id string) []byte {
	return []byte(fmt.Sprintf("user:%s", id))
}

// SeedUsers stores the boot-time user records. There is no registration
// flow: this is the only write path for users.
func (u UserRepository) SeedUsers(users map[string]string) error {
	return u.db.Update(func(txn *badger.Txn) error {
		for id, password := range users {
			bytes, err := json.Marshal(chat.User{ID: id, Password: password})
			if err != nil {
				return err
			}
			if err = txn.Set(userKey(id), bytes); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetUser answers the point lookup used by login.
func (u UserRepository) GetUser(id string) (chat.User, error) {
	var user chat.User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &user)
		})
	})
	if err == badger.ErrKeyNotFound {
		return chat.User{}, errors.ErrUnknownUser
	}
	if err != nil {
		return chat.User{}, err
	}
	return user, nil
}
