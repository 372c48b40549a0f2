package slug

import (
	"crypto/rand"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Option configures slug generation.
type Option func(*config)

type config struct {
	maxLength     int
	customReplace map[string]string
	suffixLength  int
}

// MaxLength caps the slug length in bytes. Slugs are ASCII, so bytes and
// characters coincide. Zero means no limit.
func MaxLength(n int) Option {
	return func(c *config) {
		c.maxLength = n
	}
}

// CustomReplace applies replacements before slugification,
// e.g. {"&": "and", "@": "at"}.
func CustomReplace(replacements map[string]string) Option {
	return func(c *config) {
		c.customReplace = replacements
	}
}

// WithSuffix appends a random [a-z0-9] suffix of length n, separated by a
// hyphen. The base is shortened when needed to respect MaxLength.
func WithSuffix(n int) Option {
	return func(c *config) {
		c.suffixLength = n
	}
}

// fold strips combining marks after canonical decomposition: "Café" -> "Cafe".
var fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// special covers letters that do not decompose into a base letter plus marks.
var special = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o", "ł", "l", "Ł", "l", "đ", "d", "Đ", "d",
)

// Make converts s into a lowercase slug of [a-z0-9] runs joined by single
// hyphens, with no leading or trailing hyphen. Characters that cannot be
// folded to ASCII are dropped. The result may be empty.
func Make(s string, opts ...Option) string {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	for from, to := range cfg.customReplace {
		s = strings.ReplaceAll(s, from, " "+to+" ")
	}
	s = special.Replace(s)
	if folded, _, err := transform.String(fold, s); err == nil {
		s = folded
	}

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
		case r < unicode.MaxASCII:
			pendingSep = true
		}
	}
	result := b.String()

	if cfg.suffixLength > 0 {
		suffix := randomSuffix(cfg.suffixLength)
		if cfg.maxLength > 0 {
			if len(suffix) >= cfg.maxLength {
				return suffix[:cfg.maxLength]
			}
			result = truncate(result, cfg.maxLength-len(suffix)-1)
		}
		if result == "" {
			return suffix
		}
		return result + "-" + suffix
	}

	if cfg.maxLength > 0 {
		result = truncate(result, cfg.maxLength)
	}
	return result
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) > n {
		s = s[:n]
	}
	return strings.TrimRight(s, "-")
}

func randomSuffix(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b)
}
