package partial

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow(t *testing.T) {
	t.Parallel()

	opts := Options{ShowFirst: 3, ShowLast: 3, MinLength: 10}

	tests := []struct {
		name     string
		plain    string
		expected string
		applied  bool
	}{
		{"long_value", "verylongsecretvalue", "ver*************lue", true},
		{"exact_min_length", "abcdefghij", "abc****hij", true},
		{"below_min_length", "short", "", false},
		{"empty", "", "", false},
		{"unicode", "ñandú-secreto-largo", "ñan*************rgo", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Window(tt.plain, opts, true)
			assert.Equal(t, tt.applied, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestWindow_Scenario(t *testing.T) {
	t.Parallel()

	plain := "verylongsecretvalue"
	got, ok := Window(plain, Options{ShowFirst: 3, ShowLast: 3, MinLength: 10}, true)
	require.True(t, ok)

	assert.True(t, strings.HasPrefix(got, "ver"))
	assert.True(t, strings.HasSuffix(got, "lue"))
	interior := got[3 : len(got)-3]
	assert.Equal(t, strings.Repeat("*", utf8.RuneCountInString(plain)-6), interior)
}

func TestWindow_NeverRevealsMoreThanWindow(t *testing.T) {
	t.Parallel()

	for first := 0; first <= 4; first++ {
		for last := 0; last <= 4; last++ {
			for n := 0; n <= 16; n++ {
				plain := strings.Repeat("s", n)
				opts := Options{ShowFirst: first, ShowLast: last, MinLength: 6, MaskChar: "#"}
				got, ok := Window(plain, opts, true)
				if n < opts.MinLength {
					assert.False(t, ok, "applied below min length: n=%d", n)
					continue
				}
				if !ok {
					continue
				}
				revealed := strings.Count(got, "s")
				assert.LessOrEqual(t, revealed, first+last, "first=%d last=%d n=%d", first, last, n)
				assert.Equal(t, n, utf8.RuneCountInString(got))
			}
		}
	}
}

func TestWindow_HiddenLength(t *testing.T) {
	t.Parallel()

	opts := Options{ShowFirst: 2, ShowLast: 2, MinLength: 6}
	short, ok := Window("abcdefgh", opts, false)
	require.True(t, ok)
	long, ok := Window("verylongsecretvalue", opts, false)
	require.True(t, ok)

	assert.Equal(t, "ab"+strings.Repeat("*", HiddenMaskWidth)+"gh", short)
	assert.Equal(t, "ve"+strings.Repeat("*", HiddenMaskWidth)+"ue", long)
	assert.Equal(t, utf8.RuneCountInString(short), utf8.RuneCountInString(long))
}

func TestConceal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#####", Conceal("ñandú", "#", true))
	assert.Equal(t, strings.Repeat("*", HiddenMaskWidth), Conceal("ñandú", "", false))
	assert.Equal(t, strings.Repeat("*", HiddenMaskWidth), Conceal("a much longer value", "", false))
}

func TestWindow_CoveringWindowDeclines(t *testing.T) {
	t.Parallel()

	_, ok := Window("abcdefgh", Options{ShowFirst: 4, ShowLast: 4, MinLength: 1}, true)
	assert.False(t, ok)

	got, ok := Window("abcdefgh", Options{ShowFirst: -2, ShowLast: 1, MinLength: 1}, true)
	require.True(t, ok)
	assert.Equal(t, "*******h", got)
}

func TestDigest_Deterministic(t *testing.T) {
	t.Parallel()

	opts := Options{HashSalt: "pepper", HashLength: 12}
	a := Digest("api-key-123", opts, true)
	b := Digest("api-key-123", opts, true)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "sha256:"))
	assert.True(t, strings.HasSuffix(a, "(len 11)"))
	assert.NotContains(t, a, "api-key")
}

func TestDigest_Distinct(t *testing.T) {
	t.Parallel()

	opts := Options{HashSalt: "pepper"}
	seen := make(map[string]string)
	for i := 0; i < 1000; i++ {
		plain := fmt.Sprintf("secret-%d", i)
		out := Digest(plain, opts, false)
		if prev, dup := seen[out]; dup {
			t.Fatalf("digest collision between %q and %q", prev, plain)
		}
		seen[out] = plain
	}
}

func TestDigest_SaltMatters(t *testing.T) {
	t.Parallel()

	a := Digest("value", Options{HashSalt: "one"}, true)
	b := Digest("value", Options{HashSalt: "two"}, true)
	assert.NotEqual(t, a, b)
}

func TestDigest_Length(t *testing.T) {
	t.Parallel()

	out := Digest("value", Options{HashLength: 100}, false)
	assert.Equal(t, "sha256:"+digest("value", "")+"…(len ?)", out)

	out = Digest("value", Options{}, true)
	assert.Equal(t, fmt.Sprintf("sha256:%s…(len 5)", digest("value", "")[:defaultHashLength]), out)
}

func TestApply(t *testing.T) {
	t.Parallel()

	out, ok := Apply("abc", Options{UseHash: true, HashSalt: "s"}, true)
	assert.True(t, ok)
	assert.Contains(t, out, "sha256:")

	_, ok = Apply("abc", Options{ShowFirst: 1, ShowLast: 1, MinLength: 8}, true)
	assert.False(t, ok)
}
