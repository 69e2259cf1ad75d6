package fields

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RoleUser is the default role assigned on federated signup.
const RoleUser = "user"

// User is the chat application's own user record. Users are provisioned
// lazily on first federated login; email is the lookup key and must be unique
// at the store level so concurrent first-logins cannot create duplicates.
type User struct {
	gorm.Model
	Email          string     `json:"email" gorm:"index:idx_users_email,unique"`
	DisplayName    string     `json:"display_name"`
	TenantID       string     `json:"tenant_id"`
	Role           string     `json:"role" gorm:"default:user"`
	ProviderUserID string     `json:"provider_user_id"`
	Password       string     `json:"-"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// FederatedIdentity is the trusted identity resolved from a bearer token.
type FederatedIdentity struct {
	ProviderUserID string
	Email          string
	Name           string
	TenantID       string
}

func (u *User) HashPassword() error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), 8)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// GetUserByEmail retrieves a user by email. Emails are stored lowercased.
func GetUserByEmail(email string, db *gorm.DB) (User, error) {
	var user User
	err := db.First(&user, "email = ?", strings.ToLower(email)).Error
	return user, err
}

// GetUserByID retrieves a user by primary key.
func GetUserByID(id uint, db *gorm.DB) (User, error) {
	var user User
	err := db.First(&user, id).Error
	return user, err
}

// UpsertFederatedUser looks up a user by the identity's email, creating one if
// absent. The create path runs in a transaction; a duplicate-key failure from
// a concurrent first-login is resolved by re-fetching the winning row, so both
// callers observe the same record. Returns the user and whether it was created.
func UpsertFederatedUser(identity FederatedIdentity, tenantID string, db *gorm.DB) (User, bool, error) {
	var user User
	email := strings.ToLower(identity.Email)
	if email == "" {
		return user, false, errors.New("identity has no email")
	}

	isNew := false
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "email = ?", email).Error; err == nil {
			now := time.Now().UTC()
			updates := map[string]interface{}{"last_login_at": &now}
			if user.ProviderUserID == "" && identity.ProviderUserID != "" {
				updates["provider_user_id"] = identity.ProviderUserID
			}
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		isNew = true
		user = User{
			Email:          email,
			DisplayName:    displayNameFor(identity, email),
			TenantID:       tenantID,
			Role:           RoleUser,
			ProviderUserID: identity.ProviderUserID,
			Password:       uuid.NewString(),
		}
		if err := user.HashPassword(); err != nil {
			return err
		}
		return tx.Create(&user).Error
	})

	if err != nil && isNew {
		// Lost a creation race: the unique email index rejected our insert.
		// The winner's row is authoritative.
		if existing, ferr := GetUserByEmail(email, db); ferr == nil {
			return existing, false, nil
		}
		return user, false, err
	}
	return user, isNew, err
}

func displayNameFor(identity FederatedIdentity, email string) string {
	if identity.Name != "" {
		return identity.Name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return fmt.Sprintf("member-%s", identity.ProviderUserID)
}
