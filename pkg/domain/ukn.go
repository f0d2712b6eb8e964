package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	dErrors "onekyc/pkg/domain-errors"
)

// UKN is the unique verification number issued once per verified identity.
// Format: KYC-XXXX-XXXX-XXXX, 48 random bits as uppercase hex.
type UKN string

const (
	uknPrefix     = "KYC"
	uknRandomSize = 6
	uknBlockSize  = 4
	uknBlocks     = 3
)

func (u UKN) String() string { return string(u) }
func (u UKN) IsZero() bool { return u == "" }

// NewUKN draws a fresh UKN from crypto/rand.
func NewUKN() (UKN, error) {
	return GenerateUKN(rand.Reader)
}

// GenerateUKN draws a UKN from r. Tests pass a deterministic reader to force collisions.
func GenerateUKN(r io.Reader) (UKN, error) {
	buf := make([]byte, uknRandomSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read ukn randomness: %w", err)
	}
	h := strings.ToUpper(hex.EncodeToString(buf))
	return UKN(uknPrefix + "-" + h[0:4] + "-" + h[4:8] + "-" + h[8:12]), nil
}

// ParseUKN validates and normalizes a UKN supplied by a caller.
func ParseUKN(s string) (UKN, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ukn is required")
	}
	parts := strings.Split(s, "-")
	if len(parts) != uknBlocks+1 || parts[0] != uknPrefix {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid UKN format")
	}
	for _, block := range parts[1:] {
		if len(block) != uknBlockSize || !isUpperHex(block) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid UKN format")
		}
	}
	return UKN(s), nil
}

func isUpperHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
