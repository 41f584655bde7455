package common

import (
	"strconv"
	"strings"
)

// ParseUint64orHex converts a decimal or 0x-prefixed hex string into a number.
func ParseUint64orHex(val string) (uint64, error) {
	str := strings.TrimSpace(val)
	base := 10

	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		str = str[2:]
		base = 16
	}

	return strconv.ParseUint(str, base, 64)
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// BytesToMB converts a byte count to whole megabytes.
func BytesToMB(bytes uint64) uint64 {
	return bytes / (1024 * 1024) //nolint:mnd
}
