package config

import (
	"fmt"
	"strconv"
	"strings"
)

const mib = 1 << 20

// sizeMultipliers maps unit suffixes to byte multipliers. Binary multiples:
// the frontend allocates memory and disks in MiB.
var sizeMultipliers = map[string]int64{
	"":  mib, // bare numbers mean MiB
	"k": 1 << 10,
	"m": 1 << 20,
	"g": 1 << 30,
	"t": 1 << 40,
}

// ParseSize parses a size string into bytes. A bare number is taken as MiB;
// a k/m/g/t suffix (case-insensitive, optional trailing "b") selects the
// binary unit. The value must come out positive.
//
//	"2048"  -> 2048 MiB
//	"512m"  -> 512 MiB
//	"8g"    -> 8 GiB
//	"8GB"   -> 8 GiB
func ParseSize(s string) (int64, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if raw == "" {
		return 0, fmt.Errorf("size is empty")
	}

	unit := ""
	num := raw
	if cut, ok := strings.CutSuffix(num, "b"); ok && len(cut) > 0 && !isDigit(cut[len(cut)-1]) {
		// only strip "b" when it follows a unit letter: "8gb" yes, "8b" no
		num = cut
	}
	if last := num[len(num)-1]; !isDigit(last) {
		unit = string(last)
		num = num[:len(num)-1]
	}

	mult, ok := sizeMultipliers[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q in %q", unit, s)
	}

	value, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %v", s, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("size must be positive, got %q", s)
	}

	bytes := value * mult
	if bytes/mult != value {
		return 0, fmt.Errorf("size %q overflows", s)
	}
	return bytes, nil
}

// ceilMB converts bytes to MiB, rounding any remainder up so a requested
// size is never shrunk.
func ceilMB(bytes int64) int64 {
	return (bytes + mib - 1) / mib
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
