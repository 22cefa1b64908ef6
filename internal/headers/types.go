package headers

import (
	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// Variable is one script variable declared with a var directive.
type Variable struct {
	Name  string
	Value codec.Value
}

// HeaderSet is the structured result of scanning a script's directive
// comments. It is transient: the device factory consumes it once and it is
// not referenced afterwards.
type HeaderSet struct {
	// Name of the device, from name: or the script's logical name.
	Name string

	// Type is the requested device type; the factory resolves it against
	// the template registry.
	Type string

	// ID is an explicit device id, 0 when unset.
	ID int

	Proxy   bool
	Offline bool
	Debug   bool

	Interfaces []string
	Variables  []Variable

	// UI is the ordered element list compiled from u: directives.
	UI []ui.Element

	// Files maps the logical name of each included file to its resolved
	// source path.
	Files map[string]string
}

// Logger is the minimal logging interface the parser reports through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
