package headers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// marker introduces a directive comment. Directives are line-anchored:
// the marker must be the first non-blank text on the line.
const marker = "--%%"

// legacyKeys are the directive keys the old `key=value` form is still
// accepted for. The compatibility rewrite normalizes them to `key:value`
// before the regular scan.
var legacyKeys = map[string]struct{}{
	"name": {}, "type": {}, "id": {}, "proxy": {}, "offline": {},
	"debug": {}, "var": {}, "file": {}, "u": {}, "interfaces": {},
}

// Parser scans script text for directive comments and produces a HeaderSet.
// The parser is pure: it returns a fresh HeaderSet and mutates nothing
// outside it.
type Parser struct {
	libraryPaths []string
	log          Logger
}

// NewParser creates a header parser. libraryPaths are the directories
// searched when a file directive does not resolve directly.
func NewParser(libraryPaths []string) *Parser {
	return &Parser{
		libraryPaths: libraryPaths,
		log:          noopLogger{},
	}
}

// SetLogger sets the logger used to report unknown directives.
func (p *Parser) SetLogger(l Logger) {
	p.log = l
}

// Parse scans content for directives and returns the typed HeaderSet.
// name is the script's logical name, used when no name directive appears.
//
// Typed directives failing validation return ErrValidation; unresolvable
// file directives return ErrFileNotFound. Unknown keys are reported and
// ignored.
func (p *Parser) Parse(name, content string) (*HeaderSet, error) {
	hs := &HeaderSet{
		Name:  name,
		Type:  "com.fibaro.binarySwitch",
		Files: make(map[string]string),
	}

	var rawUI []string

	for lineNo, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, marker) {
			continue
		}
		directive := normalizeLegacy(strings.TrimSpace(trimmed[len(marker):]))

		key, value, ok := strings.Cut(directive, ":")
		if !ok {
			p.log.Warn("directive missing separator", "line", lineNo+1, "text", directive)
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "u" {
			rawUI = append(rawUI, value)
			continue
		}

		if err := p.applyDirective(hs, key, value, lineNo+1); err != nil {
			return nil, err
		}
	}

	elements, err := compileUIDirectives(rawUI)
	if err != nil {
		return nil, err
	}
	hs.UI = elements

	return hs, nil
}

// normalizeLegacy rewrites the legacy `key=value` form to `key:value` for
// the keys that historically supported it. Keys already in the colon form
// pass through untouched.
func normalizeLegacy(directive string) string {
	eq := strings.IndexByte(directive, '=')
	colon := strings.IndexByte(directive, ':')
	if eq < 0 || (colon >= 0 && colon < eq) {
		return directive
	}
	key := strings.TrimSpace(directive[:eq])
	if _, legacy := legacyKeys[key]; !legacy {
		return directive
	}
	return key + ":" + directive[eq+1:]
}

// applyDirective routes one directive to its typed handler.
func (p *Parser) applyDirective(hs *HeaderSet, key, value string, line int) error {
	switch key {
	case "name":
		hs.Name = unquote(value)

	case "type":
		hs.Type = unquote(value)

	case "id":
		v, err := ParseLiteral(value)
		if err != nil {
			return fmt.Errorf("%w: id on line %d: %v", ErrValidation, line, err)
		}
		n, ok := codec.AsInt(v)
		if !ok {
			return fmt.Errorf("%w: id on line %d must be a number, got %q", ErrValidation, line, value)
		}
		hs.ID = n

	case "proxy":
		b, err := boolDirective(key, value, line)
		if err != nil {
			return err
		}
		hs.Proxy = b

	case "offline":
		b, err := boolDirective(key, value, line)
		if err != nil {
			return err
		}
		hs.Offline = b

	case "debug":
		b, err := boolDirective(key, value, line)
		if err != nil {
			return err
		}
		hs.Debug = b

	case "var":
		name, literal, ok := strings.Cut(value, "=")
		if !ok {
			return fmt.Errorf("%w: var on line %d wants name=value", ErrValidation, line)
		}
		v, err := ParseLiteral(strings.TrimSpace(literal))
		if err != nil {
			return fmt.Errorf("%w: var on line %d: %v", ErrValidation, line, err)
		}
		hs.Variables = append(hs.Variables, Variable{
			Name:  strings.TrimSpace(name),
			Value: v,
		})

	case "interfaces":
		v, err := ParseLiteral(value)
		if err != nil {
			return fmt.Errorf("%w: interfaces on line %d: %v", ErrValidation, line, err)
		}
		arr, ok := codec.AsArray(v)
		if !ok {
			return fmt.Errorf("%w: interfaces on line %d must be a list", ErrValidation, line)
		}
		for i := 0; i < arr.Len(); i++ {
			s, ok := codec.AsString(arr.At(i))
			if !ok {
				return fmt.Errorf("%w: interfaces on line %d must list strings", ErrValidation, line)
			}
			hs.Interfaces = append(hs.Interfaces, s)
		}

	case "file":
		path, logical, ok := strings.Cut(value, ",")
		if !ok {
			return fmt.Errorf("%w: file on line %d wants path,name", ErrValidation, line)
		}
		resolved, err := p.resolveFile(strings.TrimSpace(path))
		if err != nil {
			return err
		}
		hs.Files[strings.TrimSpace(logical)] = resolved

	default:
		p.log.Warn("unknown header directive ignored", "key", key, "line", line)
	}
	return nil
}

// resolveFile resolves a file directive path, falling back to the library
// search paths when the path does not resolve as given.
func (p *Parser) resolveFile(path string) (string, error) {
	if fileExists(path) {
		return path, nil
	}
	for _, dir := range p.libraryPaths {
		candidate := filepath.Join(dir, path)
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrFileNotFound, path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// compileUIDirectives validates the collected u: directives and compiles
// them into the ordered element list.
func compileUIDirectives(raw []string) ([]ui.Element, error) {
	var elements []ui.Element
	for i, text := range raw {
		v, err := ParseLiteral(text)
		if err != nil {
			return nil, fmt.Errorf("%w: u directive %d: %v", ErrValidation, i+1, err)
		}
		el, err := ui.ParseElement(v)
		if err != nil {
			return nil, fmt.Errorf("%w: u directive %d: %v", ErrValidation, i+1, err)
		}
		elements = append(elements, el)
	}
	return elements, nil
}

func boolDirective(key, value string, line int) (bool, error) {
	v, err := ParseLiteral(value)
	if err != nil {
		return false, fmt.Errorf("%w: %s on line %d: %v", ErrValidation, key, line, err)
	}
	b, ok := codec.AsBool(v)
	if !ok {
		return false, fmt.Errorf("%w: %s on line %d must be a boolean, got %q", ErrValidation, key, line, value)
	}
	return b, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
