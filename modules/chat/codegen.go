package chat

import (
	"fmt"

	nanoid "github.com/jaevor/go-nanoid"
)

// Base62 characters for room id generation.
const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// DefaultRoomIDLength is the length of generated room ids.
const DefaultRoomIDLength = 8

// maxRoomIDLength bounds ids accepted from clients.
const maxRoomIDLength = 32

// IDGenerator produces candidate room ids.
type IDGenerator func() string

// NewIDGenerator returns a nanoid generator over the base62 alphabet.
func NewIDGenerator(length int) (IDGenerator, error) {
	if length <= 0 {
		length = DefaultRoomIDLength
	}
	gen, err := nanoid.CustomASCII(base62Chars, length)
	if err != nil {
		return nil, fmt.Errorf("failed to create id generator: %w", err)
	}
	return IDGenerator(gen), nil
}

// IsValidRoomID reports whether id could have been produced by the registry.
func IsValidRoomID(id string) bool {
	if id == "" || len(id) > maxRoomIDLength {
		return false
	}
	for _, c := range id {
		if !isAlphanumeric(c) {
			return false
		}
	}
	return true
}

func isAlphanumeric(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
