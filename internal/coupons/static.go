package coupons

import (
	"context"
	"strings"
)

// StaticBook serves coupons configured at boot.
type StaticBook struct {
	codes map[string]int
}

// NewStaticBook copies the configured code map, upper-casing keys and
// dropping percentages outside 0-100.
func NewStaticBook(codes map[string]int) *StaticBook {
	normalized := make(map[string]int, len(codes))
	for code, pct := range codes {
		key := normalize(code)
		if key == "" || !validPercent(pct) {
			continue
		}
		normalized[key] = pct
	}
	return &StaticBook{codes: normalized}
}

func (b *StaticBook) Lookup(_ context.Context, code string) (int, bool, error) {
	if b == nil {
		return 0, false, nil
	}
	pct, ok := b.codes[normalize(code)]
	return pct, ok, nil
}

// Len reports how many codes the book holds.
func (b *StaticBook) Len() int {
	if b == nil {
		return 0
	}
	return len(b.codes)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func validPercent(pct int) bool {
	return pct >= 0 && pct <= 100
}
