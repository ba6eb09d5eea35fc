// Package auth persists the audiobook server access token in the system keyring.
package auth

import (
	"github.com/voicepages/voicepages/constant"
	"github.com/zalando/go-keyring"
)

const service = constant.App

// SetToken stores the access token for the given server URL.
func SetToken(server, token string) error {
	return keyring.Set(service, server, token)
}

// GetToken retrieves the access token for the given server URL.
func GetToken(server string) (string, error) {
	return keyring.Get(service, server)
}

// DeleteToken removes the access token for the given server URL.
func DeleteToken(server string) error {
	return keyring.Delete(service, server)
}

// TokenOrEmpty returns the stored token, or an empty string when none is stored
// or the keyring is unavailable.
func TokenOrEmpty(server string) string {
	token, err := GetToken(server)
	if err != nil {
		return ""
	}
	return token
}
