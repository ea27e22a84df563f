package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestStateSigner uses a fixed, known secret so tests are deterministic.
func newTestStateSigner(t *testing.T) *StateSigner {
	t.Helper()
	s, err := NewStateSigner("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewStateSigner: %v", err)
	}
	return s
}

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewStateSigner_ShortSecret(t *testing.T) {
	_, err := NewStateSigner("short")
	if err == nil {
		t.Fatal("NewStateSigner() should reject secrets shorter than 16 chars")
	}
}

func TestNewStateSigner_ValidSecret(t *testing.T) {
	if _, err := NewStateSigner("this-is-16-chars"); err != nil {
		t.Fatalf("NewStateSigner() unexpected error for valid secret: %v", err)
	}
}

// =========================================================================
// ISSUE / VERIFY
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	s := newTestStateSigner(t)

	state, err := s.Issue("cv37rs3pp9olc6atsptg")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := strings.Count(state, "."); got != 2 {
		t.Errorf("Issue() state doesn't look like a JWT (expected 2 dots, got %d)", got)
	}
}

func TestIssue_EmptyNonce(t *testing.T) {
	s := newTestStateSigner(t)
	if _, err := s.Issue(""); err == nil {
		t.Fatal("Issue() should reject an empty nonce")
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	s := newTestStateSigner(t)

	state, err := s.Issue("nonce-123")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	nonce, err := s.Verify(state)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if nonce != "nonce-123" {
		t.Errorf("Verify() nonce = %q, want %q", nonce, "nonce-123")
	}
}

func TestVerify_Expired(t *testing.T) {
	s := newTestStateSigner(t)

	state, err := s.issueWithTTL("nonce-123", -time.Minute)
	if err != nil {
		t.Fatalf("issueWithTTL() error = %v", err)
	}

	_, err = s.Verify(state)
	if err == nil {
		t.Fatal("Verify() should reject an expired state")
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("Verify() error = %v, want mention of expiry", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := newTestStateSigner(t)
	other, err := NewStateSigner("a-completely-different-secret")
	if err != nil {
		t.Fatalf("NewStateSigner: %v", err)
	}

	state, _ := issuer.Issue("nonce-123")
	if _, err := other.Verify(state); err == nil {
		t.Fatal("Verify() should reject a state signed with another secret")
	}
}

func TestVerify_Tampered(t *testing.T) {
	s := newTestStateSigner(t)
	first, _ := s.Issue("nonce-123")
	second, _ := s.Issue("nonce-456")

	// Graft the second payload onto the first signature.
	a := strings.Split(first, ".")
	b := strings.Split(second, ".")
	tampered := a[0] + "." + b[1] + "." + a[2]

	if _, err := s.Verify(tampered); err == nil {
		t.Fatal("Verify() should reject a tampered payload")
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	s := newTestStateSigner(t)

	c := jwt.RegisteredClaims{
		Subject:   "nonce-123",
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := s.Verify(foreign); err == nil {
		t.Fatal("Verify() should reject a foreign issuer")
	}
}

func TestVerify_NoneAlgorithm(t *testing.T) {
	s := newTestStateSigner(t)

	c := jwt.RegisteredClaims{
		Subject:   "nonce-123",
		Issuer:    stateIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := s.Verify(unsigned); err == nil {
		t.Fatal("Verify() must reject alg=none")
	}
}

func TestVerify_Garbage(t *testing.T) {
	s := newTestStateSigner(t)
	if _, err := s.Verify("not-a-jwt"); err == nil {
		t.Fatal("Verify() should reject garbage")
	}
}
