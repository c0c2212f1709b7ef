// Package template substitutes literal tokens such as ${TenantId} in
// configuration strings.
package template

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// TenantIDToken is replaced by the resolved tenant id.
	TenantIDToken = "${TenantId}"
	// ClientIDToken is replaced by the tenant's resolved client id.
	ClientIDToken = "${ClientId}"
)

var (
	// ErrEmptyToken is returned when storing a blank token.
	ErrEmptyToken = errors.New("template token is empty")
	// ErrDuplicateToken is returned when a token is stored twice.
	ErrDuplicateToken = errors.New("template token already stored")
)

type substitution struct {
	token string
	value string
}

// Replacer holds the substitutions for a single tenant resolution.
// It must not be shared between tenants.
type Replacer struct {
	subs []substitution
}

// New returns an empty Replacer.
func New() *Replacer {
	return &Replacer{}
}

// Store registers value for token. Storing a token twice is an error.
func (r *Replacer) Store(token, value string) error {
	if strings.TrimSpace(token) == "" {
		return ErrEmptyToken
	}
	for _, s := range r.subs {
		if s.token == token {
			return fmt.Errorf("%w: %s", ErrDuplicateToken, token)
		}
	}
	r.subs = append(r.subs, substitution{token: token, value: value})
	return nil
}

// StoreTenantID registers ${TenantId}.
func (r *Replacer) StoreTenantID(tenantID string) error {
	return r.Store(TenantIDToken, tenantID)
}

// StoreClientID registers ${ClientId}.
func (r *Replacer) StoreClientID(clientID string) error {
	return r.Store(ClientIDToken, clientID)
}

// Replace applies every stored substitution once, in the order they were
// stored.
func (r *Replacer) Replace(text string) string {
	for _, s := range r.subs {
		text = strings.ReplaceAll(text, s.token, s.value)
	}
	return text
}
