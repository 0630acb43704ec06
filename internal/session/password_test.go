package session

import "testing"

func TestHashPasswordVerifyRoundTrip(t *testing.T) {
	encoded, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("correct horse battery staple", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching password to verify")
	}
}

func TestVerifyPasswordRejectsWrongPassword(t *testing.T) {
	encoded, err := HashPassword("the-real-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	ok, err := VerifyPassword("not-the-real-password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Fatalf("expected wrong password to fail verification")
	}
}

func TestHashPasswordProducesDistinctSaltsPerCall(t *testing.T) {
	a, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	b, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are identical, salt reuse suspected")
	}
}

func TestVerifyPasswordRejectsMalformedEncoding(t *testing.T) {
	if _, err := VerifyPassword("anything", "not-an-argon2-hash"); err != ErrInvalidPasswordHash {
		t.Fatalf("VerifyPassword error = %v, want ErrInvalidPasswordHash", err)
	}
}

func TestVerifyPasswordRejectsNonArgon2idScheme(t *testing.T) {
	fake := "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"
	if _, err := VerifyPassword("anything", fake); err != ErrInvalidPasswordHash {
		t.Fatalf("VerifyPassword error = %v, want ErrInvalidPasswordHash", err)
	}
}
