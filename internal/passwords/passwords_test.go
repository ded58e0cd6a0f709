package passwords

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidtube/backend/internal/models"
)

func TestHashAndVerify(t *testing.T) {
	Cost = bcrypt.MinCost
	t.Cleanup(func() { Cost = bcrypt.DefaultCost })

	hashed, err := Hash("p1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hashed == "p1" {
		t.Fatal("expected password to be hashed")
	}

	user := models.User{Password: hashed}
	if !Verify(user, "p1") {
		t.Fatal("expected matching password to verify")
	}
	if Verify(user, "p2") {
		t.Fatal("expected wrong password to fail")
	}
	if Verify(user, "") {
		t.Fatal("expected empty candidate to fail")
	}
	if Verify(models.User{}, "p1") {
		t.Fatal("expected user without hash to fail")
	}
}

func TestHashEmpty(t *testing.T) {
	if _, err := Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword got %v", err)
	}
}

func TestHashTooLong(t *testing.T) {
	long := strings.Repeat("é", 37)
	if Fits(long) {
		t.Fatalf("expected %d bytes not to fit", len(long))
	}
	if _, err := Hash(long); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong got %v", err)
	}
	if !Fits(strings.Repeat("a", MaxBytes)) {
		t.Fatal("expected exactly MaxBytes to fit")
	}
}
