package embed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/haleth-io/vectorpipe/internal/core"
)

// KeyResolver resolves the embedding API key for a job: the
// organization-scoped sealed key first, the global key second, and
// ErrMissingCredential when neither exists. A seal that fails to open is
// logged and falls back to the global key rather than aborting.
type KeyResolver struct {
	db         core.DbClient
	sealSecret [32]byte
	hasSecret  bool
	globalKey  string
}

func NewKeyResolver(db core.DbClient, sealSecret, globalKey string) (*KeyResolver, error) {
	r := &KeyResolver{db: db, globalKey: globalKey}
	if sealSecret != "" {
		raw, err := base64.StdEncoding.DecodeString(sealSecret)
		if err != nil || len(raw) != 32 {
			return nil, fmt.Errorf("KEY_SEAL_SECRET must be base64 of 32 bytes")
		}
		copy(r.sealSecret[:], raw)
		r.hasSecret = true
	}
	return r, nil
}

// Resolve returns the API key to use for orgID. orgID may be empty, in
// which case only the global key applies.
func (r *KeyResolver) Resolve(ctx context.Context, orgID string) (string, error) {
	if orgID != "" && r.hasSecret {
		sealed, ok, err := r.db.GetOrgAPIKey(ctx, orgID)
		if err != nil {
			log.Printf("WARN: org key lookup failed for %s, falling back to global key: %v", orgID, err)
		} else if ok {
			key, err := openSealed(r.sealSecret, sealed)
			if err != nil {
				log.Printf("WARN: org key for %s failed to open, falling back to global key: %v", orgID, err)
			} else {
				return key, nil
			}
		}
	}
	if r.globalKey != "" {
		return r.globalKey, nil
	}
	return "", core.ErrMissingCredential
}

// SealKey seals a plaintext API key for at-rest storage. Used by admin
// tooling and tests; the resolver only opens.
func SealKey(secret [32]byte, plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("seal nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &secret)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func openSealed(secret [32]byte, sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("decode sealed key: %w", err)
	}
	if len(raw) < 24 {
		return "", fmt.Errorf("sealed key too short")
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &secret)
	if !ok {
		return "", fmt.Errorf("sealed key failed authentication")
	}
	return string(plain), nil
}
