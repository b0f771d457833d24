// Package transform holds the catalog of transforms codemod knows how to run.
package transform

import (
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ScriptExt is the extension of every transform script.
const ScriptExt = ".js"

//go:embed catalog.yaml
var builtinCatalog []byte

// ErrNotFound is wrapped by NotFoundError.
var ErrNotFound = errors.New("transform not found")

// Descriptor identifies a single transform.
type Descriptor struct {
	ID          string `yaml:"id"`
	DisplayName string `yaml:"display_name"`
}

// ScriptPath returns the location of the transform script inside dir.
func (d Descriptor) ScriptPath(dir string) string {
	return filepath.Join(dir, d.ID+ScriptExt)
}

// NotFoundError is returned by Resolve for an unknown identifier.
type NotFoundError struct {
	ID    string
	Valid []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("invalid transform choice %q, pick one of: %s", e.ID, strings.Join(e.Valid, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Catalog is an ordered mapping from transform ID to descriptor.
type Catalog struct {
	order []string
	byID  map[string]Descriptor
}

type catalogFile struct {
	Transforms []Descriptor `yaml:"transforms"`
}

// Parse decodes a YAML catalog. Entries keep their file order.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]Descriptor, len(f.Transforms))}
	for i, d := range f.Transforms {
		if d.ID == "" {
			return nil, fmt.Errorf("catalog entry %d: empty id", i)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, d.ID)
		}
		if d.DisplayName == "" {
			d.DisplayName = d.ID
		}
		c.order = append(c.order, d.ID)
		c.byID[d.ID] = d
	}
	return c, nil
}

var builtin = sync.OnceValue(func() *Catalog {
	c, err := Parse(builtinCatalog)
	if err != nil {
		panic(err)
	}
	return c
})

// Builtin returns the catalog embedded in the binary.
func Builtin() *Catalog {
	return builtin()
}

// Resolve looks up id with an exact, case-sensitive match.
func (c *Catalog) Resolve(id string) (Descriptor, error) {
	d, ok := c.byID[id]
	if !ok {
		return Descriptor{}, &NotFoundError{ID: id, Valid: c.IDs()}
	}
	return d, nil
}

// IDs returns every transform ID in catalog order.
func (c *Catalog) IDs() []string {
	return append([]string(nil), c.order...)
}

// All returns every descriptor in catalog order.
func (c *Catalog) All() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len reports the number of transforms.
func (c *Catalog) Len() int {
	return len(c.order)
}
