// Package id generates prefixed NanoID identifiers for stored records.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Record prefixes.
const (
	PrefixUser         = "usr"
	PrefixQuestion     = "q"
	PrefixAnswer       = "ans"
	PrefixTag          = "tag"
	PrefixInteraction  = "int"
	PrefixVote         = "vote"
	PrefixAnnouncement = "ann"
)

// Generate returns prefix + "-" + a 21 character NanoID.
func Generate(prefix string) (string, error) {
	v, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + v, nil
}

// MustGenerate is like Generate but panics when the system has no entropy.
func MustGenerate(prefix string) string {
	v, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return v
}
