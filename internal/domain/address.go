package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeAddress lowercases an account identifier so dedup keys and API
// parameters stay consistent regardless of how the address was configured.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsCanonicalAddress reports whether addr is a well-formed 20-byte hex
// address. Watch lists may carry other identifiers, so callers treat a
// false result as a warning rather than an error.
func IsCanonicalAddress(addr string) bool {
	return common.IsHexAddress(addr)
}

// ChecksumAddress renders a canonical address in EIP-55 checksum form for
// display. Non-canonical identifiers pass through unchanged.
func ChecksumAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return common.HexToAddress(addr).Hex()
}
