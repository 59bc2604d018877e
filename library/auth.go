package library

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordScheme turns a password into its stored form and checks a
// candidate against it.
type PasswordScheme interface {
	Name() string
	Encode(password string) (string, error)
	Matches(stored, candidate string) bool
}

// PlainPasswords stores passwords verbatim and compares them exactly.
type PlainPasswords struct{}

func (PlainPasswords) Name() string                          { return "plain" }
func (PlainPasswords) Encode(p string) (string, error)       { return p, nil }
func (PlainPasswords) Matches(stored, candidate string) bool { return stored == candidate }

// BcryptPasswords stores bcrypt hashes.
type BcryptPasswords struct {
	Cost int
}

func (BcryptPasswords) Name() string { return "bcrypt" }

func (b BcryptPasswords) Encode(p string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(p), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (BcryptPasswords) Matches(stored, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
}

// PasswordSchemeByName resolves a configured scheme name.
func PasswordSchemeByName(name string) (PasswordScheme, error) {
	switch name {
	case "", "plain":
		return PlainPasswords{}, nil
	case "bcrypt":
		return BcryptPasswords{}, nil
	}
	return nil, fmt.Errorf("unknown password scheme %q", name)
}

// AuthenticationCheck decides whether a username counts as signed in. There
// is no session: a name is signed in exactly when it exists in the store.
type AuthenticationCheck interface {
	Authenticated(ctx context.Context, userName string) (bool, error)
}

// resolveSignedIn maps a missing user to ErrNotSignedIn and returns the user
// otherwise.
func resolveSignedIn(ctx context.Context, q dbtx, userName string) (*User, error) {
	u, err := findUserByName(ctx, q, userName)
	if errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("%w: %q", ErrNotSignedIn, userName)
	}
	return u, err
}
