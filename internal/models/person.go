// Package models defines data types for the family relationship engine.
package models

import (
	"fmt"
	"strings"
)

// Gender of a person. The zero value is GenderUnknown.
type Gender int

// Gender values.
const (
	GenderUnknown Gender = iota
	GenderMale
	GenderFemale
)

// String returns the lowercase name of the gender.
func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "male"
	case GenderFemale:
		return "female"
	case GenderUnknown:
		return "unknown"
	}

	return fmt.Sprintf("gender(%d)", int(g))
}

// ParseGender maps a stored gender string to a Gender. Unrecognized values are unknown.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man":
		return GenderMale
	case "female", "f", "woman":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (g Gender) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Gender) UnmarshalText(b []byte) error {
	*g = ParseGender(string(b))
	return nil
}

// PersonNode is the identity unit the engine computes over.
type PersonNode struct {
	ID       string `json:"id" yaml:"id"`
	Gender   Gender `json:"gender" yaml:"gender"`
	IsLiving bool   `json:"is_living" yaml:"is_living"`
}

// Validate checks that the person is usable as a graph vertex.
func (p *PersonNode) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrMissingID
	}

	if len(p.ID) > 255 {
		return ErrFieldTooLong("id", 255)
	}

	return nil
}
