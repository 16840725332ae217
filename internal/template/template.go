// Package template compiles and renders redaction templates.
//
// A template is literal text with {{ expression }} actions. Expressions are
// string or integer literals, the variables secret_type, secret_length and
// secret_string, or calls into a small closed library of pure string
// functions, for example:
//
//	<redacted:{{secret_type}}>
//	{{replicate(character='*', length=secret_length)}}
//	{{mask_partial(secret_string, left=2, right=2)}}
//
// Templates are compiled once and rendered many times. Compile performs all
// name, arity and type checking, so a compiled template only fails at
// render time if the render context withholds a capability it uses.
package template

import (
	"strconv"
	"strings"
)

// Variable names available to templates.
const (
	VarSecretType   = "secret_type"
	VarSecretLength = "secret_length"
	VarSecretString = "secret_string"
)

// Context is the per-render metadata a template is evaluated against.
type Context struct {
	// SecretType is the kind identifier of the secret.
	SecretType string
	// SecretLength is nil when the kind has no natural size or when policy
	// suppresses it.
	SecretLength *int
	// SecretString reveals the secret's textual form. It is nil when the
	// capability is withheld.
	SecretString func() (string, error)
	// Partial applies the configured partial-redaction strategy. When nil,
	// the partial() function masks its whole argument.
	Partial func(string) string
}

// Length returns a pointer to n, for use as Context.SecretLength.
func Length(n int) *int { return &n }

// Template is a compiled redaction template. It holds no secret data and is
// safe for concurrent use.
type Template struct {
	source   string
	nodes    []node
	usesVars map[string]bool
}

// Compile parses and checks text.
func Compile(text string) (*Template, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, vars: make(map[string]bool)}
	nodes, err := p.parseTemplate()
	if err != nil {
		return nil, err
	}
	return &Template{source: text, nodes: nodes, usesVars: p.vars}, nil
}

// MustCompile is like Compile but panics on error. It is intended for
// built-in templates known to be valid.
func MustCompile(text string) *Template {
	t, err := Compile(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Source returns the text the template was compiled from.
func (t *Template) Source() string { return t.source }

// UsesSecretString reports whether rendering may reveal secret content.
func (t *Template) UsesSecretString() bool { return t.usesVars[VarSecretString] }

// UsesSecretLength reports whether the template references secret_length.
func (t *Template) UsesSecretLength() bool { return t.usesVars[VarSecretLength] }

// Render evaluates the template against ctx.
func (t *Template) Render(ctx Context) (string, error) {
	st := &evalState{ctx: ctx}
	var sb strings.Builder
	for _, n := range t.nodes {
		v, err := n.eval(st)
		if err != nil {
			return "", err
		}
		sb.WriteString(v.String())
	}
	return sb.String(), nil
}

type valueType int

const (
	typeString valueType = iota
	typeInt
)

func (t valueType) String() string {
	if t == typeInt {
		return "int"
	}
	return "string"
}

type value struct {
	typ       valueType
	str       string
	num       int
	undefined bool
}

func stringValue(s string) value { return value{typ: typeString, str: s} }
func intValue(n int) value       { return value{typ: typeInt, num: n} }

// String is the rendered form of a value. An undefined value renders empty.
func (v value) String() string {
	if v.undefined {
		return ""
	}
	if v.typ == typeInt {
		return strconv.Itoa(v.num)
	}
	return v.str
}

// coerce converts v to typ. Only int to string is allowed, which the
// checker has already verified.
func (v value) coerce(typ valueType) value {
	if v.typ == typ {
		return v
	}
	return stringValue(v.String())
}

type evalState struct {
	ctx    Context
	secret *string
}

type node interface {
	eval(st *evalState) (value, error)
	typ() valueType
}

type textNode struct{ text string }

func (n textNode) eval(*evalState) (value, error) { return stringValue(n.text), nil }
func (textNode) typ() valueType                   { return typeString }

type literalNode struct{ val value }

func (n literalNode) eval(*evalState) (value, error) { return n.val, nil }
func (n literalNode) typ() valueType                 { return n.val.typ }

type varNode struct {
	name string
	vt   valueType
}

func (n varNode) typ() valueType { return n.vt }

func (n varNode) eval(st *evalState) (value, error) {
	switch n.name {
	case VarSecretType:
		return stringValue(st.ctx.SecretType), nil
	case VarSecretLength:
		if st.ctx.SecretLength == nil {
			return value{typ: typeInt, undefined: true}, nil
		}
		return intValue(*st.ctx.SecretLength), nil
	case VarSecretString:
		if st.secret != nil {
			return stringValue(*st.secret), nil
		}
		if st.ctx.SecretString == nil {
			return value{}, runtimeErrorf("%s is not available in this render context", VarSecretString)
		}
		s, err := st.ctx.SecretString()
		if err != nil {
			return value{}, runtimeErrorf("%s: %v", VarSecretString, err)
		}
		st.secret = &s
		return stringValue(s), nil
	}
	return value{}, runtimeErrorf("unknown variable %q", n.name)
}

type callNode struct {
	fn   *function
	args []node
}

func (n callNode) typ() valueType { return n.fn.result }

func (n callNode) eval(st *evalState) (value, error) {
	args := make([]value, len(n.args))
	for i, a := range n.args {
		v, err := a.eval(st)
		if err != nil {
			return value{}, err
		}
		args[i] = v.coerce(n.fn.params[i].typ)
	}
	out, err := n.fn.call(st, args)
	if err != nil {
		return value{}, err
	}
	if out.typ != n.fn.result {
		return value{}, runtimeErrorf("%s returned %s, declared %s", n.fn.name, out.typ, n.fn.result)
	}
	return out, nil
}

var variables = map[string]valueType{
	VarSecretType:   typeString,
	VarSecretLength: typeInt,
	VarSecretString: typeString,
}
