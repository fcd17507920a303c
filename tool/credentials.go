package tool

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrMissingAPIKey is returned when the access-token file does not
// exist. main treats it as fatal (exit 1).
var ErrMissingAPIKey = errors.New("missing API key")

const signupURL = "https://www.pushbullet.com/#settings/account"

// GetAPIKey reads the access token from the apikey file. A missing
// file logs a remediation message and returns ErrMissingAPIKey.
func GetAPIKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			DefaultLogger.Errorf("Couldn't load your access token. Create one at '%s' and paste it into '%s'.", signupURL, path)
			return "", ErrMissingAPIKey
		}
		return "", fmt.Errorf("failed to read API key file: %v", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// GetEncryptionPassword reads the passphrase from the password file.
// A missing file is non-fatal: encryption stays unavailable and a
// warning points at the expected path.
func GetEncryptionPassword(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		DefaultLogger.Warnf("Can't use encryption due to inexistent password. If you wish to use encryption, place your encryption password into %s", path)
		return ""
	}
	return strings.TrimSpace(string(data))
}
