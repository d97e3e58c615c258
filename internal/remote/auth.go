package remote

import (
	"os"
	"strings"
)

// Authenticator provides credentials for OCI registry operations.
type Authenticator interface {
	// Authenticate returns credentials for the given registry. Empty
	// credentials fall back to the docker keychain.
	Authenticate(registry string) (username, password string, err error)
}

// EnvAuthenticator reads SITE_REGISTRY_USERNAME and SITE_REGISTRY_PASSWORD,
// optionally scoped with SITE_REGISTRY_HOST.
type EnvAuthenticator struct {
	Prefix string
}

func NewEnvAuthenticator() *EnvAuthenticator {
	return &EnvAuthenticator{Prefix: "SITE_REGISTRY"}
}

func (a *EnvAuthenticator) Authenticate(registry string) (string, string, error) {
	if host := os.Getenv(a.Prefix + "_HOST"); host != "" && !strings.EqualFold(host, registry) {
		return "", "", nil
	}
	return os.Getenv(a.Prefix + "_USERNAME"), os.Getenv(a.Prefix + "_PASSWORD"), nil
}
