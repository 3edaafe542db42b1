// Package services – IdentityService
//
// This file implements identity resolution: mapping a partial contact pair
// (email and/or mobile) to a definite user account, auto-provisioning a
// CLIENT account with generated credentials when no match exists and an
// email is available. It is invoked inside the walk-in claim and inspection
// transactions so that a new customer and their first record are atomic.
//
// The credential email is never sent here: the caller receives a staged
// WelcomeMail and dispatches it only after the enclosing transaction has
// committed, so no mail goes out for a rolled-back account.
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

const (
	passwordAlnum   = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	passwordSymbols = "!@#$%&*+-_?"
	passwordLength  = 12
)

// IdentityService resolves contact details to user accounts.
type IdentityService struct {
	// BcryptCost is the hashing cost for generated passwords.
	// Values < bcrypt.MinCost fall back to bcrypt.DefaultCost.
	BcryptCost int
}

// IdentityInput is the contact information available for resolution.
type IdentityInput struct {
	Email  string
	Mobile *string
	Name   string
}

// WelcomeMail is a staged credential email, produced when resolution created
// a new account. The caller sends it after its transaction commits.
type WelcomeMail struct {
	To       string
	Name     string
	Password string
}

// Resolve maps the input to a user ID.
//
// Semantics:
//   - A user matching the email or the mobile is returned as-is.
//   - When the email matches one user and the mobile a different one,
//     ErrIdentityConflict is returned rather than an arbitrary pick.
//   - When nothing matches and an email is present, a CLIENT account is
//     created pre-approved with a generated password; created is true and a
//     staged WelcomeMail is returned.
//   - When nothing matches and no email is present, resolution yields an
//     empty userID with no error; the caller decides whether an unresolved
//     customer is acceptable.
//
// Resolve must run on a transaction handle when the caller couples the user
// with other writes.
func (s *IdentityService) Resolve(ctx context.Context, tx *gorm.DB, in IdentityInput) (userID string, created bool, welcome *WelcomeMail, err error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var byEmail, byMobile *domain.User
	if email != "" {
		byEmail, err = repo.FindUserByEmail(ctx, tx, email)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return "", false, nil, err
		}
	}
	if in.Mobile != nil && strings.TrimSpace(*in.Mobile) != "" {
		byMobile, err = repo.FindUserByMobile(ctx, tx, strings.TrimSpace(*in.Mobile))
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return "", false, nil, err
		}
	}

	if byEmail != nil && byMobile != nil && byEmail.ID != byMobile.ID {
		return "", false, nil, ErrIdentityConflict
	}
	if byEmail != nil {
		return byEmail.ID, false, nil, nil
	}
	if byMobile != nil {
		return byMobile.ID, false, nil, nil
	}

	// No match. Without an email there is nothing to provision.
	if email == "" {
		return "", false, nil, nil
	}

	password, err := generatePassword()
	if err != nil {
		return "", false, nil, err
	}
	cost := s.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", false, nil, err
	}

	name := normalizeName(in.Name)
	if name == "" {
		name = emailLocalPart(email)
	}

	u := &domain.User{
		ID:            uuid.NewString(),
		Email:         email,
		Mobile:        in.Mobile,
		Name:          name,
		PasswordHash:  string(hash),
		Role:          domain.RoleClient,
		Status:        domain.UserApproved,
		EmailVerified: true,
	}
	if err := repo.CreateUser(ctx, tx, u); err != nil {
		return "", false, nil, err
	}

	return u.ID, true, &WelcomeMail{To: email, Name: name, Password: password}, nil
}

// emailLocalPart returns everything before the first '@', or the whole
// address when it carries none. Handlers accept loosely-validated contact
// input, so a missing '@' must not take the fallback path down.
func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

// normalizeName collapses whitespace and title-cases the display name.
func normalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	caser := cases.Title(language.English)
	return caser.String(strings.ToLower(strings.Join(fields, " ")))
}

// generatePassword builds a random password with at least one symbol.
func generatePassword() (string, error) {
	buf := make([]byte, 0, passwordLength)
	for i := 0; i < passwordLength-1; i++ {
		c, err := randomByte(passwordAlnum)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	sym, err := randomByte(passwordSymbols)
	if err != nil {
		return "", err
	}
	// Splice the symbol at a random offset so it is not always terminal.
	pos, err := rand.Int(rand.Reader, big.NewInt(int64(len(buf)+1)))
	if err != nil {
		return "", err
	}
	i := int(pos.Int64())
	buf = append(buf[:i], append([]byte{sym}, buf[i:]...)...)
	return string(buf), nil
}

func randomByte(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, err
	}
	return charset[n.Int64()], nil
}
