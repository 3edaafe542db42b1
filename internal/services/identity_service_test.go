package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/go-vehicle-backend/internal/domain"
	"github.com/tbourn/go-vehicle-backend/internal/repo"
)

func strPtr(s string) *string { return &s }

func TestIdentityResolve_ProvisionsAccount(t *testing.T) {
	db := newServiceDB(t, "identity_provision")
	svc := &IdentityService{BcryptCost: bcrypt.MinCost}
	ctx := context.Background()

	userID, created, welcome, err := svc.Resolve(ctx, db, IdentityInput{
		Email:  "  Priya.Nair@Example.COM ",
		Mobile: strPtr("+919876543210"),
		Name:   "priya   nair",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !created || userID == "" {
		t.Fatalf("expected a freshly created account, got created=%v id=%q", created, userID)
	}
	if welcome == nil {
		t.Fatalf("expected staged welcome mail")
	}
	if welcome.To != "priya.nair@example.com" {
		t.Fatalf("welcome recipient = %q", welcome.To)
	}
	if len(welcome.Password) != passwordLength {
		t.Fatalf("password length = %d; want %d", len(welcome.Password), passwordLength)
	}
	if !strings.ContainsAny(welcome.Password, passwordSymbols) {
		t.Fatalf("password %q has no symbol", welcome.Password)
	}

	u, err := repo.GetUser(ctx, db, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Email != "priya.nair@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.Name != "Priya Nair" {
		t.Fatalf("name not normalized: %q", u.Name)
	}
	if u.Role != domain.RoleClient || u.Status != domain.UserApproved || !u.EmailVerified {
		t.Fatalf("unexpected provisioning defaults: %+v", u)
	}
	if u.PasswordHash == welcome.Password {
		t.Fatalf("plaintext password stored")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(welcome.Password)); err != nil {
		t.Fatalf("hash does not verify: %v", err)
	}
}

func TestIdentityResolve_Idempotent(t *testing.T) {
	db := newServiceDB(t, "identity_idem")
	svc := &IdentityService{BcryptCost: bcrypt.MinCost}
	ctx := context.Background()

	first, created, _, err := svc.Resolve(ctx, db, IdentityInput{Email: "repeat@example.com", Name: "Repeat"})
	if err != nil || !created {
		t.Fatalf("first resolve: created=%v err=%v", created, err)
	}

	second, created, welcome, err := svc.Resolve(ctx, db, IdentityInput{Email: "REPEAT@example.com"})
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if created || welcome != nil {
		t.Fatalf("second resolve must not provision again")
	}
	if second != first {
		t.Fatalf("resolve not idempotent: %q vs %q", first, second)
	}
}

func TestIdentityResolve_MatchByMobile(t *testing.T) {
	db := newServiceDB(t, "identity_mobile")
	u := seedUser(t, db, "mob@example.com", strPtr("9876543210"))
	svc := &IdentityService{}

	got, created, _, err := svc.Resolve(context.Background(), db, IdentityInput{Mobile: strPtr("9876543210")})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if created || got != u.ID {
		t.Fatalf("expected existing account %q, got %q created=%v", u.ID, got, created)
	}
}

func TestIdentityResolve_Conflict(t *testing.T) {
	db := newServiceDB(t, "identity_conflict")
	a := seedUser(t, db, "a@example.com", nil)
	b := seedUser(t, db, "b@example.com", strPtr("111222333"))
	svc := &IdentityService{}

	_, _, _, err := svc.Resolve(context.Background(), db, IdentityInput{
		Email:  a.Email,
		Mobile: b.Mobile,
	})
	if !errors.Is(err, ErrIdentityConflict) {
		t.Fatalf("expected ErrIdentityConflict, got %v", err)
	}

	// same account matched both ways is fine
	c := seedUser(t, db, "c@example.com", strPtr("444555666"))
	got, created, _, err := svc.Resolve(context.Background(), db, IdentityInput{
		Email:  c.Email,
		Mobile: c.Mobile,
	})
	if err != nil || created || got != c.ID {
		t.Fatalf("self-consistent contact pair: got=%q created=%v err=%v", got, created, err)
	}
}

func TestIdentityResolve_NoEmailNoMatch(t *testing.T) {
	db := newServiceDB(t, "identity_noemail")
	svc := &IdentityService{}

	got, created, welcome, err := svc.Resolve(context.Background(), db, IdentityInput{
		Mobile: strPtr("000111222"),
		Name:   "Cash Customer",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "" || created || welcome != nil {
		t.Fatalf("expected unresolved outcome, got id=%q created=%v", got, created)
	}
}

func TestIdentityResolve_NameFallsBackToEmailLocalPart(t *testing.T) {
	db := newServiceDB(t, "identity_namefallback")
	svc := &IdentityService{BcryptCost: bcrypt.MinCost}

	userID, _, _, err := svc.Resolve(context.Background(), db, IdentityInput{Email: "ramesh@example.com"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	u, err := repo.GetUser(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Name != "ramesh" {
		t.Fatalf("fallback name = %q; want %q", u.Name, "ramesh")
	}
}

func TestIdentityResolve_MalformedEmailBlankName(t *testing.T) {
	db := newServiceDB(t, "identity_badmail")
	svc := &IdentityService{BcryptCost: bcrypt.MinCost}

	// No '@' and a whitespace-only name: the fallback must use the whole
	// address instead of slicing past a missing separator.
	userID, created, _, err := svc.Resolve(context.Background(), db, IdentityInput{
		Email: "plainaddress",
		Name:  "   ",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !created || userID == "" {
		t.Fatalf("expected provisioned account, got created=%v id=%q", created, userID)
	}
	u, err := repo.GetUser(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.Name != "plainaddress" {
		t.Fatalf("fallback name = %q; want %q", u.Name, "plainaddress")
	}
}

func Test_emailLocalPart(t *testing.T) {
	cases := []struct{ in, want string }{
		{"ramesh@example.com", "ramesh"},
		{"plainaddress", "plainaddress"},
		{"@example.com", "@example.com"},
		{"a@b@c", "a"},
	}
	for _, tc := range cases {
		if got := emailLocalPart(tc.in); got != tc.want {
			t.Fatalf("emailLocalPart(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func Test_normalizeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"   ", ""},
		{"priya nair", "Priya Nair"},
		{"  PRIYA   NAIR  ", "Priya Nair"},
		{"o'connor", "O'Connor"},
	}
	for _, tc := range cases {
		if got := normalizeName(tc.in); got != tc.want {
			t.Fatalf("normalizeName(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func Test_generatePassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pwd, err := generatePassword()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(pwd) != passwordLength {
			t.Fatalf("len = %d; want %d", len(pwd), passwordLength)
		}
		if !strings.ContainsAny(pwd, passwordSymbols) {
			t.Fatalf("password %q has no symbol", pwd)
		}
		seen[pwd] = true
	}
	if len(seen) < 2 {
		t.Fatalf("passwords are not random")
	}
}
