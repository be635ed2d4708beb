package account

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	password := "correct horse battery staple"
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty hash")
	}
	if hash == password {
		t.Error("Hash() must not return the plaintext password")
	}

	if !hasher.Verify(password, hash) {
		t.Error("Verify() should accept the correct password")
	}
	if hasher.Verify("wrong password", hash) {
		t.Error("Verify() should reject an incorrect password")
	}
}

func TestPasswordHasher_UniqueSalts(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	h1, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := hasher.Hash("same password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ")
	}
}

func TestPasswordHasher_OutOfRangeCostFallsBack(t *testing.T) {
	for _, cost := range []int{-1, 0, bcrypt.MaxCost + 1, 99} {
		hasher := NewPasswordHasher(cost)
		if hasher.cost != DefaultBcryptCost {
			t.Errorf("NewPasswordHasher(%d) cost = %d, want %d", cost, hasher.cost, DefaultBcryptCost)
		}
	}
	if h := NewPasswordHasher(bcrypt.MinCost); h.cost != bcrypt.MinCost {
		t.Errorf("in-range cost should be kept, got %d", h.cost)
	}
}
