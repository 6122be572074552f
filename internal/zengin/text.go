package zengin

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var smallKana = map[rune]rune{
	'ｧ': 'ｱ', 'ｨ': 'ｲ', 'ｩ': 'ｳ', 'ｪ': 'ｴ', 'ｫ': 'ｵ',
	'ｬ': 'ﾔ', 'ｭ': 'ﾕ', 'ｮ': 'ﾖ', 'ｯ': 'ﾂ',
}

// hiragana has no half-width form, so it is folded to katakana first.
func hiraganaToKatakana(r rune) rune {
	switch {
	case r >= 'ぁ' && r <= 'ゖ':
		return r + ('ァ' - 'ぁ')
	case r == '゛':
		return 'ﾞ'
	case r == '゜':
		return 'ﾟ'
	}
	return r
}

func newNormalizer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Map(hiraganaToKatakana), width.Narrow)
}

// Normalize folds s into the bank file character repertoire: half-width
// katakana with separate voiced marks, upper-case ASCII and large kana.
// It does not reject characters; see Validate.
func Normalize(s string) string {
	out, _, err := transform.String(newNormalizer(), s)
	if err != nil {
		out = s
	}
	out = strings.ToUpper(out)
	return strings.Map(func(r rune) rune {
		if big, ok := smallKana[r]; ok {
			return big
		}
		switch r {
		case '\u3099':
			return 'ﾞ'
		case '\u309A':
			return 'ﾟ'
		}
		return r
	}, out)
}

func isAllowed(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= 0xFF66 && r <= 0xFF9F:
		return true
	}
	switch r {
	case ' ', '(', ')', '.', '-', '/':
		return true
	}
	return false
}

// firstInvalid returns the first rune of a normalized string that cannot be
// written to a bank file, or utf8.RuneError with ok=false when all are valid.
func firstInvalid(s string) (rune, bool) {
	for _, r := range s {
		if !isAllowed(r) {
			return r, true
		}
	}
	return utf8.RuneError, false
}

// Validate normalizes s and reports whether every character is writable.
func Validate(s string) (string, bool) {
	n := Normalize(s)
	_, bad := firstInvalid(n)
	return n, !bad
}
