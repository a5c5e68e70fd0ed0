package views

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// fileEntry is one view declared in a registry file. Either Path (relative to
// the backend base url) or Endpoint (absolute) must be set.
type fileEntry struct {
	ID       string `yaml:"id" validate:"required,max=64"`
	Kind     string `yaml:"kind" validate:"required,oneof=kpi ai-insights"`
	Label    string `yaml:"label" validate:"required"`
	Path     string `yaml:"path" validate:"omitempty,startswith=/"`
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`
}

type fileSpec struct {
	Views []fileEntry `yaml:"views" validate:"dive"`
}

var validate = validator.New()

// LoadFile builds a registry from the built-in views plus any views declared
// in the YAML file at path. An empty path yields only the built-ins.
func LoadFile(path, baseURL string) (*Registry, error) {
	if path == "" {
		return load(nil, baseURL)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("views: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return load(f, baseURL)
}

func load(r io.Reader, baseURL string) (*Registry, error) {
	descriptors, err := DefaultDescriptors(baseURL)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return NewRegistry(descriptors...)
	}
	extra, err := decodeEntries(r, baseURL)
	if err != nil {
		return nil, err
	}
	return NewRegistry(append(descriptors, extra...)...)
}

func decodeEntries(r io.Reader, baseURL string) ([]Descriptor, error) {
	var spec fileSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("views: decode registry file: %w", err)
	}
	if err := validate.Struct(spec); err != nil {
		return nil, fmt.Errorf("views: invalid registry file: %w", err)
	}
	out := make([]Descriptor, 0, len(spec.Views))
	for _, entry := range spec.Views {
		if (entry.Path == "") == (entry.Endpoint == "") {
			return nil, fmt.Errorf("views: %s: exactly one of path or endpoint is required", entry.ID)
		}
		endpoint := entry.Endpoint
		if endpoint == "" {
			joined, err := JoinEndpoint(baseURL, entry.Path)
			if err != nil {
				return nil, err
			}
			endpoint = joined
		}
		out = append(out, Descriptor{
			ID:       entry.ID,
			Kind:     Kind(entry.Kind),
			Endpoint: endpoint,
			Label:    entry.Label,
		})
	}
	return out, nil
}
