// Package tokenstore persists the bearer credential and the identity it
// belongs to across process restarts.
package tokenstore

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/storefront/internal/storage"
)

// Field names a persisted credential field. The values are the storage keys.
type Field string

const (
	FieldToken  Field = "jwt_token"
	FieldEmail  Field = "user_email"
	FieldUserID Field = "user_id"
)

var allFields = []string{string(FieldToken), string(FieldEmail), string(FieldUserID)}

// Store reads and writes credential fields on a storage medium.
type Store struct {
	storage storage.Storage
}

func New(s storage.Storage) *Store {
	return &Store{storage: s}
}

// Save writes the provided fields, overwriting prior values.
// An empty userID is treated as not provided and leaves the stored id alone.
// The token shape is not validated.
func (s *Store) Save(token, email, userID string) error {
	if err := s.storage.Set(string(FieldToken), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if err := s.storage.Set(string(FieldEmail), email); err != nil {
		return fmt.Errorf("failed to save email: %w", err)
	}
	if userID != "" {
		if err := s.storage.Set(string(FieldUserID), userID); err != nil {
			return fmt.Errorf("failed to save user id: %w", err)
		}
	}

	log.Debug().Str("email", email).Msg("credential saved")

	return nil
}

// Remove deletes every credential field. Safe to call when nothing is stored.
func (s *Store) Remove() error {
	if err := s.storage.Delete(allFields...); err != nil {
		return fmt.Errorf("failed to remove credential: %w", err)
	}

	log.Debug().Msg("credential removed")

	return nil
}

// Get returns the stored value of field. Storage errors read as absent.
func (s *Store) Get(field Field) (string, bool) {
	v, ok, err := s.storage.Get(string(field))
	if err != nil {
		log.Debug().Err(err).Str("field", string(field)).Msg("credential read failed")
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Token returns the stored bearer token or "".
func (s *Store) Token() string {
	v, _ := s.Get(FieldToken)
	return v
}

func (s *Store) Email() string {
	v, _ := s.Get(FieldEmail)
	return v
}

func (s *Store) UserID() string {
	v, _ := s.Get(FieldUserID)
	return v
}

// Expiry reports the exp claim of a JWT bearer token without verifying its
// signature. It is informational only, the server stays the authority on
// whether a token is still valid. Opaque tokens report false.
func Expiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
