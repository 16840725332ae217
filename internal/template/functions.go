package template

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// maxReplicate bounds the output of replicate so a template cannot be used
// to allocate unbounded memory.
const maxReplicate = 4096

type param struct {
	name string
	typ  valueType
	def  *value
}

type function struct {
	name   string
	params []param
	result valueType
	call   func(st *evalState, args []value) (value, error)
}

func intDefault(n int) *value    { v := intValue(n); return &v }
func strDefault(s string) *value { v := stringValue(s); return &v }

// library is the closed set of functions a template may call. Every
// function is pure and deterministic.
var library = map[string]*function{
	"replicate": {
		name:   "replicate",
		params: []param{{name: "character", typ: typeString}, {name: "length", typ: typeInt}},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(replicate(args[0].str, args[1].num)), nil
		},
	},
	"take": {
		name:   "take",
		params: []param{{name: "n", typ: typeInt}, {name: "s", typ: typeString}},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(take(args[0].num, args[1].str)), nil
		},
	},
	"reverse": {
		name:   "reverse",
		params: []param{{name: "s", typ: typeString}},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(reverse(args[0].str)), nil
		},
	},
	"strlen": {
		name:   "strlen",
		params: []param{{name: "s", typ: typeString}},
		result: typeInt,
		call: func(_ *evalState, args []value) (value, error) {
			return intValue(strlen(args[0].str)), nil
		},
	},
	"mask_partial": {
		name: "mask_partial",
		params: []param{
			{name: "s", typ: typeString},
			{name: "left", typ: typeInt, def: intDefault(0)},
			{name: "right", typ: typeInt, def: intDefault(0)},
			{name: "mask_char", typ: typeString, def: strDefault("*")},
		},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(MaskPartial(args[0].str, args[1].num, args[2].num, args[3].str)), nil
		},
	},
	"upper": {
		name:   "upper",
		params: []param{{name: "s", typ: typeString}},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(strings.ToUpper(args[0].str)), nil
		},
	},
	"lower": {
		name:   "lower",
		params: []param{{name: "s", typ: typeString}},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(strings.ToLower(args[0].str)), nil
		},
	},
	"partial": {
		name:   "partial",
		params: []param{{name: "s", typ: typeString}},
		result: typeString,
		call: func(st *evalState, args []value) (value, error) {
			if st.ctx.Partial == nil {
				return stringValue(replicate("*", strlen(args[0].str))), nil
			}
			return stringValue(st.ctx.Partial(args[0].str)), nil
		},
	},
	"sha256": {
		name:   "sha256",
		params: []param{{name: "s", typ: typeString}},
		result: typeString,
		call: func(_ *evalState, args []value) (value, error) {
			return stringValue(sha256Hash(args[0].str)), nil
		},
	},
}

// FunctionNames returns the names of all library functions.
func FunctionNames() []string {
	names := make([]string, 0, len(library))
	for name := range library {
		names = append(names, name)
	}
	return names
}

func replicate(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	per := strlen(s)
	if n > maxReplicate/per {
		n = maxReplicate / per
	}
	return strings.Repeat(s, n)
}

func take(n int, s string) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func strlen(s string) int {
	n := 0
	for range s {
		n++
	}
	return n
}

// MaskPartial keeps the first left and last right characters of s and
// replaces the rest with mask repeated once per hidden character. When
// left+right covers the whole string, s is returned unchanged.
func MaskPartial(s string, left, right int, mask string) string {
	if left < 0 {
		left = 0
	}
	if right < 0 {
		right = 0
	}
	r := []rune(s)
	if left >= len(r) || right >= len(r)-left {
		return s
	}
	hidden := len(r) - left - right
	var sb strings.Builder
	sb.WriteString(string(r[:left]))
	sb.WriteString(strings.Repeat(mask, hidden))
	sb.WriteString(string(r[len(r)-right:]))
	return sb.String()
}

// sha256Hash returns the SHA256 hash of a string
func sha256Hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
