package auth

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"strings"
)

// ServerHash computes the session-verification hash over the server id, the
// shared secret, and the server's DER-encoded public key. The wire format is
// the protocol's historical quirk: the SHA-1 sum interpreted as a signed
// big-endian integer, rendered as minimal hex with a leading '-' when
// negative.
func ServerHash(serverID string, parts ...[]byte) string {
	h := sha1.New()
	_, _ = io.WriteString(h, serverID)
	for _, p := range parts {
		h.Write(p)
	}
	return signedHex(h.Sum(nil))
}

func signedHex(sum []byte) string {
	negative := sum[0]&0x80 != 0
	if negative {
		// Two's complement in place.
		carry := true
		for i := len(sum) - 1; i >= 0; i-- {
			sum[i] = ^sum[i]
			if carry {
				sum[i]++
				carry = sum[i] == 0
			}
		}
	}

	s := strings.TrimLeft(hex.EncodeToString(sum), "0")
	if s == "" {
		s = "0"
	}
	if negative {
		s = "-" + s
	}
	return s
}
