package hash

import (
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

const (
	MethodBcrypt   = "bcrypt"
	MethodArgon2ID = "argon2id"
)

// Hasher is a one-way adaptive password hash.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

func New(method string) (Hasher, error) {
	switch method {
	case "", MethodBcrypt:
		return Bcrypt{Cost: bcrypt.DefaultCost}, nil
	case MethodArgon2ID:
		return Argon2ID{Params: argon2id.DefaultParams}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", method)
	}
}

type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(hashbytes), nil
}

func (b Bcrypt) Verify(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}

type Argon2ID struct {
	Params *argon2id.Params
}

func (a Argon2ID) Hash(plain string) (string, error) {
	params := a.Params
	if params == nil {
		params = argon2id.DefaultParams
	}
	digest, err := argon2id.CreateHash(plain, params)
	if err != nil {
		return "", fmt.Errorf("argon2id: %w", err)
	}
	return digest, nil
}

func (a Argon2ID) Verify(plain, digest string) bool {
	ok, err := argon2id.ComparePasswordAndHash(plain, digest)
	return err == nil && ok
}
