package headers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// ParseLiteral parses a value literal into the tagged value model. The
// grammar covers booleans, nil, numbers, quoted strings and nested table
// literals ({a=1, b={2,3}}), which is everything a directive may carry.
// Directive text is parsed, never evaluated: no code runs to read
// configuration.
func ParseLiteral(input string) (codec.Value, error) {
	s := &literalScanner{input: input}
	v, err := s.parseValue()
	if err != nil {
		return nil, err
	}
	s.skipSpace()
	if !s.eof() {
		return nil, fmt.Errorf("%w: trailing text %q", ErrLiteral, s.rest())
	}
	return v, nil
}

// literalScanner is a minimal hand-written recursive-descent parser over a
// single directive value.
type literalScanner struct {
	input string
	pos   int
}

func (s *literalScanner) eof() bool { return s.pos >= len(s.input) }

func (s *literalScanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.input[s.pos]
}

func (s *literalScanner) rest() string {
	if s.eof() {
		return ""
	}
	return s.input[s.pos:]
}

func (s *literalScanner) skipSpace() {
	for !s.eof() {
		switch s.input[s.pos] {
		case ' ', '\t', '\r', '\n':
			s.pos++
		default:
			return
		}
	}
}

func (s *literalScanner) parseValue() (codec.Value, error) {
	s.skipSpace()
	if s.eof() {
		return nil, fmt.Errorf("%w: empty value", ErrLiteral)
	}

	switch c := s.peek(); {
	case c == '{':
		return s.parseTable()
	case c == '\'' || c == '"':
		str, err := s.parseString()
		if err != nil {
			return nil, err
		}
		return codec.String(str), nil
	case c == '-' || (c >= '0' && c <= '9'):
		return s.parseNumber()
	default:
		return s.parseWord()
	}
}

// parseWord handles the bare identifiers the grammar knows: true, false, nil.
func (s *literalScanner) parseWord() (codec.Value, error) {
	start := s.pos
	for !s.eof() && isWordChar(s.peek()) {
		s.pos++
	}
	switch word := s.input[start:s.pos]; word {
	case "true":
		return codec.Bool(true), nil
	case "false":
		return codec.Bool(false), nil
	case "nil":
		return codec.Null{}, nil
	case "":
		return nil, fmt.Errorf("%w: unexpected character %q", ErrLiteral, string(s.peek()))
	default:
		return nil, fmt.Errorf("%w: unknown word %q", ErrLiteral, word)
	}
}

func (s *literalScanner) parseNumber() (codec.Value, error) {
	start := s.pos
	if s.peek() == '-' {
		s.pos++
	}
	for !s.eof() {
		c := s.peek()
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' ||
			((c == '+' || c == '-') && s.pos > start && (s.input[s.pos-1] == 'e' || s.input[s.pos-1] == 'E')) {
			s.pos++
			continue
		}
		break
	}
	text := s.input[start:s.pos]
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad number %q", ErrLiteral, text)
	}
	return codec.Number(f), nil
}

func (s *literalScanner) parseString() (string, error) {
	quote := s.peek()
	s.pos++
	var sb strings.Builder
	for !s.eof() {
		c := s.input[s.pos]
		s.pos++
		switch c {
		case quote:
			return sb.String(), nil
		case '\\':
			if s.eof() {
				return "", fmt.Errorf("%w: unterminated escape", ErrLiteral)
			}
			e := s.input[s.pos]
			s.pos++
			switch e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '\'', '"':
				sb.WriteByte(e)
			default:
				return "", fmt.Errorf("%w: unknown escape \\%c", ErrLiteral, e)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", fmt.Errorf("%w: unterminated string", ErrLiteral)
}

// parseTable parses { ... }. A table with only positional entries becomes
// an array; one with only keyed entries becomes a map; mixing the two in
// one literal is rejected.
func (s *literalScanner) parseTable() (codec.Value, error) {
	s.pos++ // consume '{'

	arr := codec.NewArray()
	m := codec.NewMap()
	positional, keyed := 0, 0

	for {
		s.skipSpace()
		if s.eof() {
			return nil, fmt.Errorf("%w: unterminated table", ErrLiteral)
		}
		if s.peek() == '}' {
			s.pos++
			break
		}

		key, isKeyed, err := s.tryParseKey()
		if err != nil {
			return nil, err
		}

		v, err := s.parseValue()
		if err != nil {
			return nil, err
		}

		if isKeyed {
			keyed++
			m.Set(key, v)
		} else {
			positional++
			arr.Append(v)
		}

		s.skipSpace()
		switch s.peek() {
		case ',', ';':
			s.pos++
		case '}':
			// closed on next loop turn
		default:
			return nil, fmt.Errorf("%w: expected , or } in table", ErrLiteral)
		}
	}

	if positional > 0 && keyed > 0 {
		return nil, fmt.Errorf("%w: table mixes positional and keyed entries", ErrLiteral)
	}
	if positional > 0 {
		return arr, nil
	}
	return m, nil
}

// tryParseKey looks ahead for `name =` or `["name"] =`; when present it
// consumes the key and the equals sign, otherwise it leaves the scanner
// positioned on a positional value.
func (s *literalScanner) tryParseKey() (string, bool, error) {
	s.skipSpace()
	save := s.pos

	if s.peek() == '[' {
		s.pos++
		s.skipSpace()
		if c := s.peek(); c != '\'' && c != '"' {
			s.pos = save
			return "", false, fmt.Errorf("%w: bracket keys must be strings", ErrLiteral)
		}
		key, err := s.parseString()
		if err != nil {
			return "", false, err
		}
		s.skipSpace()
		if s.peek() != ']' {
			return "", false, fmt.Errorf("%w: expected ] after key", ErrLiteral)
		}
		s.pos++
		s.skipSpace()
		if s.peek() != '=' {
			return "", false, fmt.Errorf("%w: expected = after key", ErrLiteral)
		}
		s.pos++
		return key, true, nil
	}

	if !isWordStart(s.peek()) {
		return "", false, nil
	}
	start := s.pos
	for !s.eof() && isWordChar(s.peek()) {
		s.pos++
	}
	word := s.input[start:s.pos]
	s.skipSpace()
	if s.peek() == '=' && (s.pos+1 >= len(s.input) || s.input[s.pos+1] != '=') {
		s.pos++
		return word, true, nil
	}

	// Not a key after all (true/false/nil as positional value).
	s.pos = save
	return "", false, nil
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
