package auth

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ParseBasic extracts the principal named by a Basic Authorization header.
// Passwords are not verified; an empty header yields the anonymous principal.
func ParseBasic(header string) (*Principal, error) {
	if header == "" {
		return &Principal{}, nil
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "basic" {
		return nil, errors.New("not basic")
	}
	dec, err := base64.StdEncoding.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	creds := strings.SplitN(string(dec), ":", 2)
	if len(creds) != 2 {
		return nil, errors.New("malformed basic")
	}
	return &Principal{UserID: creds[0]}, nil
}
