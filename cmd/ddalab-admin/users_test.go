package main

import "testing"

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q, want %q", got, "short")
	}
	if got := truncate("a-very-long-string", 10); got != "a-very..." {
		t.Fatalf("got %q, want %q", got, "a-very...")
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "Yes" || yesNo(false) != "No" {
		t.Fatal("yesNo mapping incorrect")
	}
}

func TestGenerateSecurePasswordLengthAndCharset(t *testing.T) {
	pw, err := generateSecurePassword()
	if err != nil {
		t.Fatalf("generateSecurePassword: %v", err)
	}
	if len(pw) != 16 {
		t.Fatalf("got length %d, want 16", len(pw))
	}
	for _, r := range pw {
		found := false
		for _, c := range passwordCharset {
			if r == c {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("character %q not in allowed charset", r)
		}
	}
}
