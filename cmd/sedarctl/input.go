package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/sedar/pkg/formstate"
)

// readDocument reads a JSON or YAML file ("-" is stdin) and returns it as JSON.
func readDocument(stdin io.Reader, path string) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "read %s", path))
	}
	if json.Valid(b) {
		return b, nil
	}
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "parse %s", path))
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "parse %s", path))
	}
	return out, nil
}

func readLookups(stdin io.Reader, path string) (formstate.Lookups, error) {
	if path == "" {
		return formstate.Lookups{}, nil
	}
	b, err := readDocument(stdin, path)
	if err != nil {
		return nil, err
	}
	var out formstate.Lookups
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "lookups %s", path))
	}
	return out, nil
}

// readFields decodes a field set file. Keys the file omits keep their value
// from base, normally the create-mode projection with its defaults.
func readFields(stdin io.Reader, schema *formstate.Schema, base formstate.FieldSet, path string) (formstate.FieldSet, error) {
	b, err := readDocument(stdin, path)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, withCode(exitUsage, errors.Wrapf(err, "fields %s", path))
	}
	fields, err := formstate.DecodeFieldSet(schema, raw)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	for k, v := range base {
		if _, ok := raw[k]; !ok {
			fields[k] = v
		}
	}
	return fields, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "json encode")
	}
	return nil
}
