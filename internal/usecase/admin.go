package usecase

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/eliteGoblin/focusd/browser_guard/internal/domain"
)

// AdminSecretKey is the secret store key holding the admin password hash.
const AdminSecretKey = "admin_password_hash"

const minAdminPasswordLen = 6

// Admin guards privileged operations (stopping the daemon) behind the
// shared admin secret. Only a bcrypt hash is stored.
type Admin struct {
	store domain.SecretStore
	cost  int
}

// NewAdmin creates an admin guard over store.
func NewAdmin(store domain.SecretStore) *Admin {
	return &Admin{store: store, cost: bcrypt.DefaultCost}
}

// NewAdminWithCost creates an admin guard with a custom bcrypt cost (for testing).
func NewAdminWithCost(store domain.SecretStore, cost int) *Admin {
	return &Admin{store: store, cost: cost}
}

// IsSet reports whether an admin password has been configured.
func (a *Admin) IsSet() (bool, error) {
	_, err := a.store.GetSecret(AdminSecretKey)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Verify checks password against the stored hash.
func (a *Admin) Verify(password string) error {
	hash, err := a.store.GetSecret(AdminSecretKey)
	if errors.Is(err, domain.ErrSecretNotFound) {
		return domain.ErrAdminPasswordNotSet
	}
	if err != nil {
		return fmt.Errorf("failed to read admin secret: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return domain.ErrInvalidAdminPassword
	}
	return nil
}

// SetPassword replaces the admin password. When one is already set, old
// must verify against it.
func (a *Admin) SetPassword(old, password string) error {
	if len(password) < minAdminPasswordLen {
		return fmt.Errorf("admin password must be at least %d characters", minAdminPasswordLen)
	}

	set, err := a.IsSet()
	if err != nil {
		return err
	}
	if set {
		if err := a.Verify(old); err != nil {
			return err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	return a.store.SetSecret(AdminSecretKey, string(hash))
}
