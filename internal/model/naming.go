package model

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const parquetExt = ".parquet"

const uuidTokenLen = 32

// CompactedFileName returns a fresh output file name for the given base name:
// <base>_<32-hex-uuid>.parquet. Every call yields a new token so repeated
// runs never collide with existing outputs
func CompactedFileName(baseName string) string {
	u := uuid.New()
	return baseName + "_" + hex.EncodeToString(u[:]) + parquetExt
}

// IsCompactedFileName reports whether fileName was produced by a prior
// compaction for the given base name. It recognizes the current convention
// <base>_<32-hex-uuid>.parquet and the legacy convention <base>_<N>.parquet
// with a plain decimal counter
func IsCompactedFileName(fileName, baseName string) bool {
	rest, ok := strings.CutPrefix(fileName, baseName+"_")
	if !ok {
		return false
	}
	token, ok := strings.CutSuffix(rest, parquetExt)
	if !ok || token == "" {
		return false
	}
	if len(token) == uuidTokenLen && isHex(token) {
		return true
	}
	return isDecimal(token)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
