package auth

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// OfflineUUID derives the deterministic unique id for a self-asserted name:
// md5("OfflinePlayer:" + name), stamped as a version 3, IETF-variant UUID.
// The derivation is case-sensitive, matching what clients expect.
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30 // version 3
	sum[8] = sum[8]&0x3f | 0x80 // IETF variant

	id, _ := uuid.FromBytes(sum[:])
	return id
}
