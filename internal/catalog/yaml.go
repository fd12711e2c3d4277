package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk shape of a catalog file.
type fileFormat struct {
	Version string       `yaml:"version"`
	Cases   []Definition `yaml:"cases"`
}

// Decode reads a YAML catalog and validates it.
func Decode(r io.Reader) (*Catalog, error) {
	var ff fileFormat
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if ff.Version == "" {
		return nil, &DefinitionError{Err: fmt.Errorf("missing version")}
	}
	return New(ff.Version, ff.Cases)
}

// LoadFile reads and validates a YAML catalog from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load returns the catalog at path, or the built-in catalog when path is
// empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Encode writes c as YAML. The output can be read back with Decode.
func (c *Catalog) Encode(w io.Writer) error {
	ff := fileFormat{Version: c.version, Cases: make([]Definition, len(c.defs))}
	for i, d := range c.defs {
		ff.Cases[i] = *d
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ff); err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	return enc.Close()
}
