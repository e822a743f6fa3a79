package qsdk

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const keyringService = "qsys"

// normalizeKey converts a baseURL into a stable key name for keyring storage,
// so https://example.com/ and https://example.com share one entry.
func normalizeKey(baseURL string) string {
	s := strings.TrimSpace(baseURL)
	s = strings.TrimRight(s, "/")
	s = strings.ToLower(s)
	return s
}

// SaveAPIKey stores the API key in the OS keyring under the normalized baseURL.
func SaveAPIKey(baseURL string, key string) error {
	return keyring.Set(keyringService, normalizeKey(baseURL), key)
}

// LoadAPIKey returns the stored key for baseURL. A missing entry is not an
// error; it yields "".
func LoadAPIKey(baseURL string) (string, error) {
	key, err := keyring.Get(keyringService, normalizeKey(baseURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return key, err
}

// DeleteAPIKey removes the key for baseURL. Deleting a missing entry is a no-op.
func DeleteAPIKey(baseURL string) error {
	err := keyring.Delete(keyringService, normalizeKey(baseURL))
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
