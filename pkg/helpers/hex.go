// Package helpers provides small byte/hex utilities shared by the API and
// CLI tooling layers.
package helpers

import "encoding/hex"

// HexToBytes decodes a hex string (with or without a leading 0x) to bytes.
func HexToBytes(s string) ([]byte, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// BytesToHex encodes b as a lowercase hex string with no 0x prefix,
// matching the wire format spec.md §6 uses for pubkeys and signatures.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}
