package files

import (
	"fmt"
	"strings"
	"unicode"
)

// ObjectKey joins an owner and a file name into the owner-scoped storage key.
// Segments are rejected rather than rewritten, so distinct inputs never collide.
func ObjectKey(ownerID, fileName string) (string, error) {
	if err := validateSegment("owner", ownerID); err != nil {
		return "", err
	}
	if err := validateSegment("file name", fileName); err != nil {
		return "", err
	}
	return ownerID + "/" + fileName, nil
}

func ownerPrefix(ownerID string) (string, error) {
	if err := validateSegment("owner", ownerID); err != nil {
		return "", err
	}
	return ownerID + "/", nil
}

func validateSegment(kind, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidKey, kind)
	}
	if s == "." || s == ".." {
		return fmt.Errorf("%w: %s %q is reserved", ErrInvalidKey, kind, s)
	}
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: %s %q contains a path separator", ErrInvalidKey, kind, s)
	}
	if strings.IndexFunc(s, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %s %q contains control characters", ErrInvalidKey, kind, s)
	}
	return nil
}
