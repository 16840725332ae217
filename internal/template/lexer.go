package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokText
	tokOpen  // {{
	tokClose // }}
	tokIdent
	tokString
	tokInt
	tokLParen
	tokRParen
	tokComma
	tokAssign
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of template"
	case tokText:
		return "text"
	case tokOpen:
		return "'{{'"
	case tokClose:
		return "'}}'"
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokInt:
		return "integer"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokComma:
		return "','"
	case tokAssign:
		return "'='"
	}
	return "unknown token"
}

type token struct {
	kind tokenKind
	pos  int
	val  string
}

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// lex splits src into tokens. Text outside {{ }} becomes a single tokText;
// inside an action it produces expression tokens.
func lex(src string) ([]token, error) {
	var toks []token
	pos := 0
	for pos < len(src) {
		i := strings.Index(src[pos:], openDelim)
		if i < 0 {
			toks = append(toks, token{kind: tokText, pos: pos, val: src[pos:]})
			break
		}
		if i > 0 {
			toks = append(toks, token{kind: tokText, pos: pos, val: src[pos : pos+i]})
		}
		pos += i
		toks = append(toks, token{kind: tokOpen, pos: pos})
		pos += len(openDelim)

		var err error
		toks, pos, err = lexAction(src, pos, toks)
		if err != nil {
			return nil, err
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func lexAction(src string, pos int, toks []token) ([]token, int, error) {
	start := pos - len(openDelim)
	for {
		if pos >= len(src) {
			return nil, pos, syntaxErrorf(start, "unclosed action")
		}
		r, w := utf8.DecodeRuneInString(src[pos:])
		switch {
		case unicode.IsSpace(r):
			pos += w
		case strings.HasPrefix(src[pos:], closeDelim):
			toks = append(toks, token{kind: tokClose, pos: pos})
			return toks, pos + len(closeDelim), nil
		case r == '(':
			toks = append(toks, token{kind: tokLParen, pos: pos})
			pos++
		case r == ')':
			toks = append(toks, token{kind: tokRParen, pos: pos})
			pos++
		case r == ',':
			toks = append(toks, token{kind: tokComma, pos: pos})
			pos++
		case r == '=':
			toks = append(toks, token{kind: tokAssign, pos: pos})
			pos++
		case r == '\'' || r == '"':
			s, next, err := lexString(src, pos, r)
			if err != nil {
				return nil, pos, err
			}
			toks = append(toks, token{kind: tokString, pos: pos, val: s})
			pos = next
		case r >= '0' && r <= '9':
			end := pos
			for end < len(src) && src[end] >= '0' && src[end] <= '9' {
				end++
			}
			toks = append(toks, token{kind: tokInt, pos: pos, val: src[pos:end]})
			pos = end
		case r == '_' || unicode.IsLetter(r):
			end := pos
			for end < len(src) {
				c, cw := utf8.DecodeRuneInString(src[end:])
				if c != '_' && !unicode.IsLetter(c) && !unicode.IsDigit(c) {
					break
				}
				end += cw
			}
			toks = append(toks, token{kind: tokIdent, pos: pos, val: src[pos:end]})
			pos = end
		default:
			return nil, pos, syntaxErrorf(pos, "unexpected character %q", r)
		}
	}
}

func lexString(src string, pos int, quote rune) (string, int, error) {
	var sb strings.Builder
	i := pos + 1
	for i < len(src) {
		r, w := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == quote:
			return sb.String(), i + w, nil
		case r == '\\':
			if i+w >= len(src) {
				return "", i, syntaxErrorf(pos, "unterminated string")
			}
			e, ew := utf8.DecodeRuneInString(src[i+w:])
			switch e {
			case '\\', '\'', '"':
				sb.WriteRune(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				return "", i, syntaxErrorf(i, "unknown escape sequence \\%c", e)
			}
			i += w + ew
		default:
			sb.WriteRune(r)
			i += w
		}
	}
	return "", i, syntaxErrorf(pos, "unterminated string")
}
