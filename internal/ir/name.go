package ir

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeStateName returns the stored form of a state name.
//
// The name is NFC-normalized, then cut to at most MaxStateNameLen bytes
// without splitting a UTF-8 sequence. Every registry lookup compares
// normalized names, so a name longer than the bound always maps to the
// same entry.
func NormalizeStateName(name string) string {
	n := norm.NFC.String(name)
	if len(n) <= MaxStateNameLen {
		return n
	}
	cut := MaxStateNameLen
	for cut > 0 && !utf8.RuneStart(n[cut]) {
		cut--
	}
	return n[:cut]
}
