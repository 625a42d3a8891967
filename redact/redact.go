// Package redact reversibly tokenizes sensitive identifiers in model
// traffic. Outbound text has provider numbers and card numbers replaced by
// opaque tokens before the collaborator sees it; inbound text has tokens
// swapped back so callers receive the original values. Token-to-value
// mappings are scoped to a session and never leave the process boundary
// chosen by the MappingStore.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

const (
	// NPIPrefix marks tokens minted for 10-digit provider identifiers.
	NPIPrefix = "NPI_TOKEN_"
	// PCIPrefix marks tokens minted for payment card numbers.
	PCIPrefix = "PCI_TOKEN_"

	tokenHashLen = 12
)

var (
	// npiPattern matches a standalone 10-digit national provider identifier.
	npiPattern = regexp.MustCompile(`\b\d{10}\b`)

	// panPattern matches card-number shaped digit groups; candidates are
	// confirmed by digit count (13 to 19) before tokenizing.
	panPattern = regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}(?:[ -]?\d{1,4})?\b`)

	// tokenPattern recognizes previously minted tokens in model output.
	tokenPattern = regexp.MustCompile(`(?:NPI|PCI)_TOKEN_[0-9a-f]{12}`)
)

// Token derives the deterministic token for a sensitive value: the prefix
// plus the first 12 hex characters of the value's SHA-256. Determinism keeps
// repeated mentions of the same value mapped to one token.
func Token(prefix, value string) string {
	sum := sha256.Sum256([]byte(value))
	return prefix + hex.EncodeToString(sum[:])[:tokenHashLen]
}

// Redactor performs pure text sanitization and restoration. It carries no
// storage; the plugin persists the mappings it reports.
type Redactor struct{}

// NewRedactor creates a Redactor.
func NewRedactor() *Redactor { return &Redactor{} }

// SanitizeText replaces sensitive values in text with tokens and returns the
// sanitized text plus the token-to-value mappings minted for it. Card
// numbers are replaced before provider numbers so overlapping digit runs
// resolve to the card match.
func (r *Redactor) SanitizeText(text string) (string, map[string]string) {
	mappings := map[string]string{}

	text = panPattern.ReplaceAllStringFunc(text, func(match string) string {
		digits := countDigits(match)
		if digits < 13 || digits > 19 {
			return match
		}
		token := Token(PCIPrefix, match)
		mappings[token] = match
		return token
	})

	text = npiPattern.ReplaceAllStringFunc(text, func(match string) string {
		token := Token(NPIPrefix, match)
		mappings[token] = match
		return token
	})

	return text, mappings
}

// RestoreText replaces every known token in text with its original value.
// lookup returns the value for a token and whether it is known; unknown
// tokens are left untouched.
func (r *Redactor) RestoreText(text string, lookup func(token string) (string, bool)) string {
	return tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		if value, ok := lookup(token); ok {
			return value
		}
		return token
	})
}

// ContainsToken reports whether text holds at least one minted token.
func ContainsToken(text string) bool { return tokenPattern.MatchString(text) }

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
