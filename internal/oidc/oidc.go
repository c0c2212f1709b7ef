package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WellKnownPath is appended to an authority to form its discovery URL.
const WellKnownPath = ".well-known/openid-configuration"

// maxDocumentSize bounds the discovery document read from the network.
const maxDocumentSize = 1 << 20

// WellKnownEndpoints holds the parts of the discovery document this module
// uses.
type WellKnownEndpoints struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// DiscoveryURL joins authority and WellKnownPath with exactly one slash.
func DiscoveryURL(authority string) string {
	return strings.TrimRight(authority, "/") + "/" + WellKnownPath
}

// GetWellKnownEndpoints fetches and decodes the discovery document at
// discoveryURL.
func GetWellKnownEndpoints(ctx context.Context, client *http.Client, discoveryURL string) (*WellKnownEndpoints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well-known endpoints: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch well-known endpoints from %s: %w", discoveryURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, discoveryURL)
	}

	var endpoints WellKnownEndpoints
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&endpoints); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from %s: %w", discoveryURL, err)
	}

	if endpoints.Issuer == "" {
		return nil, errors.New("discovery document is missing required 'issuer' field")
	}
	if endpoints.JWKSURI == "" {
		return nil, errors.New("discovery document is missing required 'jwks_uri' field")
	}

	return &endpoints, nil
}
