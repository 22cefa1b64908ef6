package quickapp

import (
	_ "embed"
	"fmt"

	"github.com/jangabrielsson/plua2/internal/codec"
	"github.com/jangabrielsson/plua2/internal/ui"
)

// templatesJSON holds the built-in device type templates. They ship inside
// the binary so an offline run needs no data files.
//
//go:embed templates.json
var templatesJSON string

// TemplateRegistry resolves device types to their property templates and
// platform-embedded UI elements.
type TemplateRegistry struct {
	properties map[string]*codec.Map
	interfaces map[string][]string
	embedded   map[string][]ui.Element
}

// LoadTemplates parses the embedded template data.
func LoadTemplates() (*TemplateRegistry, error) {
	v, err := codec.Decode(templatesJSON)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTemplates, err)
	}
	root, ok := codec.AsMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: template root is not an object", ErrBadTemplates)
	}

	tr := &TemplateRegistry{
		properties: make(map[string]*codec.Map),
		interfaces: make(map[string][]string),
		embedded:   make(map[string][]ui.Element),
	}

	for _, typ := range root.Keys() {
		tv, _ := root.Get(typ)
		tmpl, ok := codec.AsMap(tv)
		if !ok {
			return nil, fmt.Errorf("%w: template %q is not an object", ErrBadTemplates, typ)
		}

		props := codec.NewMap()
		if pv, ok := tmpl.Get("properties"); ok {
			pm, ok := codec.AsMap(pv)
			if !ok {
				return nil, fmt.Errorf("%w: template %q properties is not an object", ErrBadTemplates, typ)
			}
			props = pm
		}
		tr.properties[typ] = props

		if iv, ok := tmpl.Get("interfaces"); ok {
			arr, ok := codec.AsArray(iv)
			if !ok {
				return nil, fmt.Errorf("%w: template %q interfaces is not a list", ErrBadTemplates, typ)
			}
			for i := 0; i < arr.Len(); i++ {
				s, ok := codec.AsString(arr.At(i))
				if !ok {
					return nil, fmt.Errorf("%w: template %q interfaces must be strings", ErrBadTemplates, typ)
				}
				tr.interfaces[typ] = append(tr.interfaces[typ], s)
			}
		}

		if ev, ok := tmpl.Get("embeddedUI"); ok {
			arr, ok := codec.AsArray(ev)
			if !ok {
				return nil, fmt.Errorf("%w: template %q embeddedUI is not a list", ErrBadTemplates, typ)
			}
			for i := 0; i < arr.Len(); i++ {
				el, err := ui.ParseElement(arr.At(i))
				if err != nil {
					return nil, fmt.Errorf("%w: template %q embeddedUI: %v", ErrBadTemplates, typ, err)
				}
				tr.embedded[typ] = append(tr.embedded[typ], el)
			}
		}
	}

	return tr, nil
}

// Has reports whether typ resolves in the registry.
func (t *TemplateRegistry) Has(typ string) bool {
	_, ok := t.properties[typ]
	return ok
}

// Instantiate clones the template for typ into a fresh device descriptor
// with no id yet. Unknown types fail with ErrUnknownType.
func (t *TemplateRegistry) Instantiate(typ string) (*Device, error) {
	props, ok := t.properties[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	cloned, _ := codec.AsMap(codec.Clone(props))

	ifs := make([]string, len(t.interfaces[typ]))
	copy(ifs, t.interfaces[typ])

	return &Device{
		Type:       typ,
		Enabled:    true,
		Visible:    true,
		Interfaces: ifs,
		Properties: cloned,
	}, nil
}

// EmbeddedUI returns the platform-default UI elements injected ahead of
// script-declared ones for typ, or nil when the type has none.
func (t *TemplateRegistry) EmbeddedUI(typ string) []ui.Element {
	return t.embedded[typ]
}
