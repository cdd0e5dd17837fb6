package valueobject

import (
	"errors"
	"strings"
)

var (
	ErrEmptyCredential   = errors.New("credential is required")
	ErrCredentialTooLong = errors.New("credential exceeds maximum length")
)

// maxCredentialLength bounds what we forward to the backend; identity
// provider tokens are a few KB at most.
const maxCredentialLength = 16 * 1024

// Credential is the opaque string handed out by the identity provider.
type Credential struct {
	value string
}

func NewCredential(raw string) (*Credential, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, ErrEmptyCredential
	}
	if len(value) > maxCredentialLength {
		return nil, ErrCredentialTooLong
	}
	return &Credential{value: value}, nil
}

func (c *Credential) Value() string {
	return c.value
}
