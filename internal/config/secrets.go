// internal/config/secrets.go
//
// Secret references inside configuration values.
//
// A value of the form `vault:<mount>/<path>#<key>` is not used verbatim.
// `ResolveSecrets` hands each reference to a lookup function (normally
// `(*vault.Client).GetKV`) and stores the returned plain string.  This
// package does not import the Vault SDK.

package config

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const secretPrefix = "vault:"

// secretTTL bounds how long a resolved secret is cached by the lookup.
const secretTTL = 10 * time.Minute

// SecretLookup fetches one key from a secret path.
type SecretLookup func(ctx context.Context, path, key string, ttl time.Duration) (string, error)

// IsSecretRef reports whether s carries the vault: prefix.
func IsSecretRef(s string) bool { return strings.HasPrefix(s, secretPrefix) }

// ParseSecretRef splits `vault:<path>#<key>`.
func ParseSecretRef(s string) (path, key string, err error) {
	if !IsSecretRef(s) {
		return "", "", fmt.Errorf("not a secret reference: %q", s)
	}
	rest := strings.TrimPrefix(s, secretPrefix)
	path, key, ok := strings.Cut(rest, "#")
	if !ok || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", fmt.Errorf("secret reference %q must look like vault:<mount>/<path>#<key>", s)
	}
	return path, key, nil
}

// HasSecretRefs reports whether any field still needs resolving.
func (c *Config) HasSecretRefs() bool {
	return IsSecretRef(c.Database.Password)
}

// ResolveSecrets replaces every secret reference with its value.
func (c *Config) ResolveSecrets(ctx context.Context, lookup SecretLookup) error {
	for _, target := range []*string{&c.Database.Password} {
		if !IsSecretRef(*target) {
			continue
		}
		path, key, err := ParseSecretRef(*target)
		if err != nil {
			return err
		}
		val, err := lookup(ctx, path, key, secretTTL)
		if err != nil {
			return fmt.Errorf("resolve secret %s#%s: %w", path, key, err)
		}
		*target = val
	}
	return nil
}
