// Package hostabi is the single source of truth for every host
// import: its parameter/result LIR shapes, loaded once
// from a YAML manifest (internal/hostabi/catalogue.yaml) so
// internal/wasmgen (emitting the import section) and internal/hostsim
// (registering wasmer-go closures) cannot drift apart.
package hostabi

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

//go:embed catalogue.yaml
var embeddedCatalogue embed.FS

// ValueType is a LIR-level value shape a host import's params/results
// are stated in.
type ValueType string

const (
	TypeF64    ValueType = "f64"
	TypeI32    ValueType = "i32"
	TypeBool   ValueType = "bool"
	TypeNobody ValueType = "nobody"
)

// Entry describes one host import.
type Entry struct {
	Name    string      `yaml:"name"`
	Params  []ValueType `yaml:"params"`
	Results []ValueType `yaml:"results"`
}

// Catalogue is the decoded, name-indexed manifest.
type Catalogue struct {
	entries map[string]Entry
	order   []string
}

var (
	once    sync.Once
	loaded  *Catalogue
	loadErr error
)

// Default returns the catalogue embedded at build time from
// catalogue.yaml, decoding it exactly once.
func Default() (*Catalogue, error) {
	once.Do(func() {
		raw, err := embeddedCatalogue.ReadFile("catalogue.yaml")
		if err != nil {
			loadErr = fmt.Errorf("hostabi: %w", err)
			return
		}
		loaded, loadErr = Parse(raw)
	})
	return loaded, loadErr
}

// Parse decodes a YAML manifest in the catalogue.yaml shape.
func Parse(raw []byte) (*Catalogue, error) {
	var doc struct {
		HostFunctions []Entry `yaml:"host_functions"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("hostabi: decoding catalogue: %w", err)
	}

	c := &Catalogue{entries: make(map[string]Entry, len(doc.HostFunctions))}
	for _, e := range doc.HostFunctions {
		if _, dup := c.entries[e.Name]; dup {
			return nil, fmt.Errorf("hostabi: duplicate host function %q in catalogue", e.Name)
		}
		c.entries[e.Name] = e
		c.order = append(c.order, e.Name)
	}
	return c, nil
}

// Lookup returns the entry for name, and false if the catalogue has
// no such import. A name carrying a ":"-separated suffix (the
// "turtle-field:xcor" form that internal/mir2lir's hostName builds
// from a node's HostCallName and Imm.Str) is looked up by its prefix: the catalogue
// describes one generic "turtle-field" import parameterized by the
// composed field name, not one entry per concrete field.
//
// A missing host call is a normal, recoverable condition the caller
// reports through its own typed error (mir2lir.EmitError,
// install.Error) — logged at warn level so a catalogue/compiler drift
// is visible without aborting the process.
func (c *Catalogue) Lookup(name string) (Entry, bool) {
	base := name
	if i := strings.IndexByte(name, ':'); i >= 0 {
		base = name[:i]
	}
	e, ok := c.entries[base]
	if !ok {
		logrus.WithField("host_function", name).Warn("hostabi: no catalogue entry for host function")
	}
	return e, ok
}

// Names returns every registered host import name, in manifest order.
func (c *Catalogue) Names() []string { return append([]string(nil), c.order...) }
