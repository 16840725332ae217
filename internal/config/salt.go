package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// ErrSaltNotFound is returned when a hash_salt_ref points at nothing.
var ErrSaltNotFound = stderrors.New("hash salt not found")

// SaltResolver turns a hash_salt_ref into the salt it names.
type SaltResolver func(ref string) (string, error)

// ResolveSalt understands two reference forms:
//
//	keyring:<service>/<account>   OS keyring entry (Keychain, Secret Service, Credential Manager)
//	env:<NAME>                    environment variable
func ResolveSalt(ref string) (string, error) {
	scheme, rest, ok := strings.Cut(ref, ":")
	if !ok {
		return "", fmt.Errorf("invalid salt reference %q", ref)
	}
	switch scheme {
	case "keyring":
		service, account, ok := strings.Cut(rest, "/")
		if !ok || service == "" || account == "" {
			return "", fmt.Errorf("invalid keyring reference %q (expected keyring:<service>/<account>)", ref)
		}
		salt, err := keyring.Get(service, account)
		if err != nil {
			if stderrors.Is(err, keyring.ErrNotFound) {
				return "", fmt.Errorf("%w: keyring entry %s/%s", ErrSaltNotFound, service, account)
			}
			return "", err
		}
		return salt, nil
	case "env":
		salt, ok := os.LookupEnv(rest)
		if !ok || salt == "" {
			return "", fmt.Errorf("%w: environment variable %s", ErrSaltNotFound, rest)
		}
		return salt, nil
	}
	return "", fmt.Errorf("unsupported salt reference scheme %q", scheme)
}
