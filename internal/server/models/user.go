// Package models holds the server-side persistence models.
package models

import (
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/cryptox"
)

// DefaultPreferredLanguage is stored when registration omits a language.
const DefaultPreferredLanguage = "ru"

// User is an identity together with its credential.
//
// PasswordHash is an opaque bcrypt digest: never log it or send it to a
// client. Email is nil when the user has none; it is only ever decrypted for
// the duration of a single request.
type User struct {
	ID                string
	Username          string
	PasswordHash      string
	Email             *cryptox.EncryptedField
	PreferredLanguage string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
