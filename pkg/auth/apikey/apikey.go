// Package apikey provides an API key authenticator that validates keys
// against a static key store using SHA-256 hashing and constant-time
// comparison. Keys are accepted as a Bearer token or in the X-API-Key header.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/chatlike/pkg/auth"
)

// HeaderName is the alternative header carrying an API key.
const HeaderName = "X-API-Key"

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

type keyEntry struct {
	hash     [32]byte
	identity auth.Identity
}

// Authenticator validates API keys against a static key store.
type Authenticator struct {
	keys []keyEntry
}

// New creates an API key authenticator from a list of raw keys and identities.
// Keys are hashed immediately; plaintext keys are not stored. Entries with an
// empty key are skipped.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		a.keys = append(a.keys, keyEntry{
			hash:     sha256.Sum256([]byte(e.Key)),
			identity: e.Identity,
		})
	}
	return a
}

// Len returns the number of usable keys.
func (a *Authenticator) Len() int {
	return len(a.keys)
}

// Authenticate validates the key presented by the request.
// Returns Yes if valid, No if a key is present but unknown,
// Abstain if the request carries no key at all.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	key := strings.TrimSpace(r.Header.Get(HeaderName))
	if key == "" {
		token, ok := auth.BearerToken(r)
		if !ok {
			return auth.AuthResult{Decision: auth.Abstain}
		}
		if token == "" {
			return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
		}
		key = token
	}

	keyHash := sha256.Sum256([]byte(key))

	// Compare against every entry so timing does not reveal the match position.
	var match *keyEntry
	for i := range a.keys {
		if subtle.ConstantTimeCompare(keyHash[:], a.keys[i].hash[:]) == 1 && match == nil {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	// Copy identity to avoid shared state.
	id := match.identity
	if match.identity.Metadata != nil {
		id.Metadata = make(map[string]string, len(match.identity.Metadata))
		for k, v := range match.identity.Metadata {
			id.Metadata[k] = v
		}
	}
	return auth.AuthResult{Decision: auth.Yes, Identity: &id}
}
