package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	_ "github.com/marinaua13/social-media-api/docs" // registers the swagger doc

	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"
)

// exportYAML renders the registered swagger doc as YAML to path, or to w when path is empty.
func exportYAML(path string, w io.Writer) error {
	raw, err := swag.ReadDoc()
	if err != nil {
		return fmt.Errorf("read swagger doc: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("decode swagger doc: %w", err)
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if path == "" {
		_, err = w.Write(out)
		return err
	}
	return os.WriteFile(path, out, 0o600)
}
