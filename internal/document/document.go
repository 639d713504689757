package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Format identification.
const (
	Writer        = "plantline"
	FormatVersion = "1"
)

// Header describes who wrote a document and when.
type Header struct {
	Writer    string    `yaml:"writer"`
	Version   string    `yaml:"version"`
	OriginID  string    `yaml:"origin_id,omitempty"`
	Project   string    `yaml:"project,omitempty"`
	WrittenAt time.Time `yaml:"written_at,omitempty"`
}

// Library is a named class library with an opaque body.
type Library struct {
	Name    string    `yaml:"name"`
	Content yaml.Node `yaml:"content,omitempty"`
}

// Document is the in-memory form of a plant document.
type Document struct {
	Header              Header      `yaml:"header"`
	InstanceHierarchies []Hierarchy `yaml:"instance_hierarchies,omitempty"`
	SystemUnitClassLibs []Library   `yaml:"system_unit_class_libs,omitempty"`
	RoleClassLibs       []Library   `yaml:"role_class_libs,omitempty"`
	InterfaceClassLibs  []Library   `yaml:"interface_class_libs,omitempty"`
	AttributeTypeLibs   []Library   `yaml:"attribute_type_libs,omitempty"`
}

// New returns an empty document for project.
func New(project string) *Document {
	return &Document{Header: Header{
		Writer:   Writer,
		Version:  FormatVersion,
		OriginID: uuid.New().String(),
		Project:  project,
	}}
}

// Load reads the document at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes a document from r.
func Read(r io.Reader) (*Document, error) {
	var d Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if d.Header.Version != "" && d.Header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVersion, d.Header.Version)
	}
	return &d, nil
}

// Write encodes d to w and stamps the header.
func (d *Document) Write(w io.Writer) error {
	d.Header.Writer = Writer
	d.Header.Version = FormatVersion
	d.Header.WrittenAt = time.Now().UTC().Truncate(time.Second)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return enc.Close()
}

// Save writes d to path through a temporary file in the same directory.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".plantline-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // already renamed on success

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	return nil
}

// Hierarchy returns the instance hierarchy called name, or nil.
func (d *Document) Hierarchy(name string) *Hierarchy {
	for i := range d.InstanceHierarchies {
		if d.InstanceHierarchies[i].Name == name {
			return &d.InstanceHierarchies[i]
		}
	}
	return nil
}
