// Package ident generates client-side message identifiers.
package ident

import "crypto/rand"

// DefaultLength is the identifier length used for outbound messages.
const DefaultLength = 24

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Bytes at or above this bound are rejected so every alphabet symbol is
// equally likely (248 = 4 * 62).
const rejectAbove = 256 - 256%len(alphabet)

// Generate returns length characters sampled uniformly from the alphanumeric
// alphabet. It keeps no state between calls.
func Generate(length int) string {
	if length <= 0 {
		return ""
	}

	out := make([]byte, 0, length)
	buf := make([]byte, length+length/4+1)
	for len(out) < length {
		// crypto/rand.Read never fails on supported platforms.
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out)
}
