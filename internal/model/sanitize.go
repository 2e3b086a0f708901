package model

import (
	"strconv"
	"strings"
)

// SafeName converts free-form text into an identifier-safe token.
//
// Every rune outside [A-Za-z0-9_] becomes an underscore and letters are
// lowercased, so the result only ever contains printable ASCII. The
// function is total and idempotent, but it is not injective: "DJ-X" and
// "DJ_X" both map to "dj_x". Callers that need distinct tokens must
// disambiguate themselves (see Names).
//
// Example:
//
//	SafeName("Rain Temple!") // Returns "rain_temple_"
//	SafeName("Beyoncé")      // Returns "beyonc_"
func SafeName(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	for _, r := range text {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	return b.String()
}

// Names hands out unique tokens derived from SafeName.
//
// The first raw name that claims a token gets it unchanged; a different raw
// name that sanitizes to the same token gets "_2", "_3", ... appended in
// first-seen order. Claiming the same raw name again returns the token it
// already owns, so shared keys (two songs on one release) stay shared.
type Names struct {
	owners map[string]string // token -> raw name that owns it
	issued map[string]string // raw name -> token
}

// NewNames creates an empty token registry.
func NewNames() *Names {
	return &Names{
		owners: make(map[string]string),
		issued: make(map[string]string),
	}
}

// Claim returns the unique token for raw, given its sanitized base token.
func (n *Names) Claim(raw, base string) string {
	if token, ok := n.issued[raw]; ok {
		return token
	}

	token := base
	for i := 2; ; i++ {
		owner, taken := n.owners[token]
		if !taken || owner == raw {
			break
		}
		token = base + "_" + strconv.Itoa(i)
	}

	n.owners[token] = raw
	n.issued[raw] = token
	return token
}
