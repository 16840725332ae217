// Package partial implements partial redaction: revealing a bounded window
// of a secret's characters, or a short salted digest of it.
//
// Both strategies are pure functions of their inputs and safe for
// concurrent use.
package partial

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Options configures a partial-redaction strategy.
type Options struct {
	ShowFirst  int
	ShowLast   int
	MinLength  int
	MaskChar   string
	UseHash    bool
	HashSalt   string
	HashLength int
}

const (
	defaultMaskChar   = "*"
	defaultHashLength = 12

	// HiddenMaskWidth is the mask width used when the length must not show.
	HiddenMaskWidth = 8
)

// Window reveals the first ShowFirst and last ShowLast characters of plain
// and masks the interior. It reports false, and returns an empty string,
// when plain is shorter than MinLength or the window would cover the whole
// value; callers must then fall back to full redaction. When showLength is
// false the interior is a fixed HiddenMaskWidth characters wide.
func Window(plain string, opts Options, showLength bool) (string, bool) {
	first, last := clamp(opts.ShowFirst), clamp(opts.ShowLast)
	n := utf8.RuneCountInString(plain)
	if n < opts.MinLength || first+last >= n {
		return "", false
	}

	r := []rune(plain)
	var sb strings.Builder
	sb.WriteString(string(r[:first]))
	sb.WriteString(maskOf(opts.MaskChar, n-first-last, showLength))
	sb.WriteString(string(r[n-last:]))
	return sb.String(), true
}

// Conceal masks every character of plain, or a fixed HiddenMaskWidth
// characters when showLength is false.
func Conceal(plain, maskChar string, showLength bool) string {
	return maskOf(maskChar, utf8.RuneCountInString(plain), showLength)
}

func maskOf(maskChar string, n int, showLength bool) string {
	if maskChar == "" {
		maskChar = defaultMaskChar
	}
	if !showLength {
		n = HiddenMaskWidth
	}
	return strings.Repeat(maskChar, n)
}

// Digest renders a salted HMAC-SHA256 of plain as a hex prefix followed by
// the original length. Identical plain and salt always produce identical
// output. When showLength is false the length is replaced by "?".
func Digest(plain string, opts Options, showLength bool) string {
	size := opts.HashLength
	if size <= 0 {
		size = defaultHashLength
	}
	sum := digest(plain, opts.HashSalt)
	if size > len(sum) {
		size = len(sum)
	}
	length := "?"
	if showLength {
		length = fmt.Sprint(utf8.RuneCountInString(plain))
	}
	return fmt.Sprintf("sha256:%s…(len %s)", sum[:size], length)
}

func digest(plain, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(plain))
	return hex.EncodeToString(mac.Sum(nil))
}

// Apply runs the strategy selected by opts.UseHash. The boolean result is
// false when the window strategy declined; the digest strategy always
// applies.
func Apply(plain string, opts Options, showLength bool) (string, bool) {
	if opts.UseHash {
		return Digest(plain, opts, showLength), true
	}
	return Window(plain, opts, showLength)
}

func clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
