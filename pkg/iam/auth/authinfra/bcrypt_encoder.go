package authinfra

import (
	"github.com/Abraxas-365/lingua/pkg/errx"
	"golang.org/x/crypto/bcrypt"
)

// BcryptPasswordEncoder hashes passwords with bcrypt.
type BcryptPasswordEncoder struct {
	cost int
}

func NewBcryptPasswordEncoder(cost int) *BcryptPasswordEncoder {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordEncoder{cost: cost}
}

func (e *BcryptPasswordEncoder) Encode(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), e.cost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}
	return string(hash), nil
}

// Matches never matches an empty hash.
func (e *BcryptPasswordEncoder) Matches(raw, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}
