package chat

import "strings"

// zeroWidthRunes is the exact code point set spec.md §6 calls out as
// invisible/zero-width characters that must be replaced with an ASCII
// space before a chat line is considered for publishing.
var zeroWidthRunes = buildZeroWidthSet()

func buildZeroWidthSet() map[rune]struct{} {
	set := map[rune]struct{}{
		0x00AD: {}, 0x00A0: {}, 0x0009: {}, 0x034F: {}, 0x061C: {},
		0x115F: {}, 0x1160: {}, 0x17B4: {}, 0x17B5: {}, 0x180E: {},
		0x202F: {}, 0x205F: {},
		0x206A: {}, 0x206B: {}, 0x206C: {}, 0x206D: {}, 0x206E: {}, 0x206F: {},
		0x3000: {}, 0x2800: {}, 0x3164: {}, 0xFEFF: {}, 0xFFA0: {},
	}
	for r := rune(0x2000); r <= 0x200F; r++ {
		set[r] = struct{}{}
	}
	for r := rune(0x2060); r <= 0x2064; r++ {
		set[r] = struct{}{}
	}
	return set
}

// stripZeroWidth replaces every zero-width/invisible code point in s
// with an ASCII space, then trims leading/trailing whitespace. This is
// the first step of message normalization in the publish pipeline
// (spec.md §4.1 step 4), applied before command/mention dispatch.
func stripZeroWidth(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, stripped := zeroWidthRunes[r]; stripped {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
