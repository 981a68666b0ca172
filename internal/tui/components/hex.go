package components

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHex converts hex strings to bytes. Supports both:
// - Space-separated: "48 65 6C 6C 6F"
// - Continuous: "48656C6C6F"
// - Prefixed: "0x48 0x65"
func ParseHex(hexStr string) ([]byte, error) {
	// Remove prefixes and spaces
	cleanHex := strings.ReplaceAll(hexStr, "0x", "")
	cleanHex = strings.ReplaceAll(cleanHex, "0X", "")
	cleanHex = strings.Join(strings.Fields(cleanHex), "")
	if len(cleanHex) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	// Check if it's valid hex characters
	for _, char := range cleanHex {
		if !((char >= '0' && char <= '9') || (char >= 'A' && char <= 'F') || (char >= 'a' && char <= 'f')) {
			return nil, fmt.Errorf("invalid hex character '%c'", char)
		}
	}

	// Must be even number of hex digits to form complete bytes
	if len(cleanHex)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even number of digits (got %d)", len(cleanHex))
	}

	// Parse pairs of hex digits into bytes
	bytes := make([]byte, 0, len(cleanHex)/2)
	for i := 0; i < len(cleanHex); i += 2 {
		hexByte := cleanHex[i : i+2]
		b, err := strconv.ParseUint(hexByte, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s': %v", hexByte, err)
		}
		bytes = append(bytes, byte(b))
	}
	return bytes, nil
}
