package storage

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/rodrigo-brito/psviewer/model"
)

// Export writes the stored bundles selected by filters as a YAML mapping
// from key to properties.
func Export(w io.Writer, s Storage, filters ...KeyFilter) error {
	keys, err := s.Keys(filters...)
	if err != nil {
		return err
	}

	document := make(map[string]model.Props, len(keys))
	for _, key := range keys {
		props, ok, err := s.Value(key)
		if err != nil {
			return fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			document[key] = props
		}
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(document); err != nil {
		return err
	}
	return encoder.Close()
}

// Import stores every bundle of a YAML document written by Export and
// returns the imported keys.
func Import(r io.Reader, s Storage) ([]string, error) {
	document := make(map[string]model.Props)
	if err := yaml.NewDecoder(r).Decode(&document); err != nil && err != io.EOF {
		return nil, fmt.Errorf("invalid settings document: %w", err)
	}

	keys := make([]string, 0, len(document))
	for key, props := range document {
		if props == nil {
			props = model.Props{}
		}
		if err := s.SetValue(key, props); err != nil {
			return keys, fmt.Errorf("write %s: %w", key, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
