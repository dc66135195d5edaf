package envelope

import (
	"os"

	"github.com/jllopis/agora/pkg/errors"
)

// KeyProvider supplies the shared secret the Sealer derives its cipher
// from. Production deployments can back this with a managed-secret
// service without touching the envelope logic.
type KeyProvider interface {
	CurrentKey() ([]byte, error)
}

// EnvKeyProvider reads the secret from an environment variable on every
// call, so rotation takes effect without a restart.
type EnvKeyProvider struct {
	Var string
}

// CurrentKey returns the secret from the configured environment
// variable.
func (p EnvKeyProvider) CurrentKey() ([]byte, error) {
	secret := os.Getenv(p.Var)
	if secret == "" {
		return nil, errors.New(errors.CodeInvalidInput, "envelope secret is not set", nil).
			WithContext("var", p.Var)
	}
	return []byte(secret), nil
}

// StaticKeyProvider holds a fixed secret. Intended for tests.
type StaticKeyProvider []byte

// CurrentKey returns the fixed secret.
func (p StaticKeyProvider) CurrentKey() ([]byte, error) {
	if len(p) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "envelope secret is empty", nil)
	}
	return []byte(p), nil
}
