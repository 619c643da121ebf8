package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"

	"pulsechat/pkg/logger"
	"pulsechat/pkg/models"
)

// ErrUserExists is returned when a registration collides with an
// existing email or phone number.
var ErrUserExists = fmt.Errorf("user already exists")

func userKey(id string) string     { return "user:" + id }
func emailKey(email string) string { return "idx:email:" + strings.ToLower(email) }
func phoneKey(phone string) string { return "idx:phone:" + phone }

// CreateUser persists a new user and its email/phone lookup indexes.
// The uniqueness check and the writes run under a single mutex; user
// creation is rare enough that one lock is fine.
func CreateUser(u models.User) error {
	if db == nil {
		return notOpen()
	}
	userLocks.Lock()
	defer userLocks.Unlock()

	if _, err := get(emailKey(u.Email)); err == nil {
		return ErrUserExists
	} else if err != ErrNotFound {
		return err
	}
	if _, err := get(phoneKey(u.Phone)); err == nil {
		return ErrUserExists
	} else if err != ErrNotFound {
		return err
	}

	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	batch := db.NewBatch()
	_ = batch.Set([]byte(userKey(u.ID)), b, nil)
	_ = batch.Set([]byte(emailKey(u.Email)), []byte(u.ID), nil)
	_ = batch.Set([]byte(phoneKey(u.Phone)), []byte(u.ID), nil)
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Error("create_user_failed", "user", u.ID, "error", err)
		return err
	}
	logger.Info("user_created", "user", u.ID)
	return nil
}

// GetUser returns a user by ID.
func GetUser(id string) (models.User, error) {
	var u models.User
	v, err := get(userKey(id))
	if err != nil {
		return u, err
	}
	err = json.Unmarshal(v, &u)
	return u, err
}

// SaveUser overwrites a user record and refreshes its lookup indexes.
func SaveUser(u models.User) error {
	if db == nil {
		return notOpen()
	}
	userLocks.Lock()
	defer userLocks.Unlock()
	b, err := json.Marshal(u)
	if err != nil {
		return err
	}
	batch := db.NewBatch()
	_ = batch.Set([]byte(userKey(u.ID)), b, nil)
	_ = batch.Set([]byte(emailKey(u.Email)), []byte(u.ID), nil)
	_ = batch.Set([]byte(phoneKey(u.Phone)), []byte(u.ID), nil)
	return batch.Commit(pebble.Sync)
}

// FindUserByIdentifier resolves an email address or phone number to a
// user record.
func FindUserByIdentifier(identifier string) (models.User, error) {
	if id, err := get(emailKey(identifier)); err == nil {
		return GetUser(string(id))
	} else if err != ErrNotFound {
		return models.User{}, err
	}
	id, err := get(phoneKey(identifier))
	if err != nil {
		return models.User{}, err
	}
	return GetUser(string(id))
}

// FindUserByPhone resolves a phone number to a user record.
func FindUserByPhone(phone string) (models.User, error) {
	id, err := get(phoneKey(phone))
	if err != nil {
		return models.User{}, err
	}
	return GetUser(string(id))
}
