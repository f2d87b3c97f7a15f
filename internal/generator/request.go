package generator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
)

// ConfigError reports a build configuration file that cannot be used.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration file %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// BuildRequest is the build configuration submitted to the generator. Its
// keys are passed through without interpretation.
type BuildRequest map[string]any

// LoadBuildRequest reads a JSON object from path.
func LoadBuildRequest(path string) (BuildRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Path: path, Err: errors.New("not found")}
		}
		return nil, &ConfigError{Path: path, Err: err}
	}
	return ParseBuildRequest(path, data)
}

// ParseBuildRequest decodes data as a JSON object. Numbers keep their
// original text.
func ParseBuildRequest(path string, data []byte) (BuildRequest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &ConfigError{Path: path, Err: errors.New("invalid JSON: trailing data after object")}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, &ConfigError{Path: path, Err: fmt.Errorf("expected a JSON object, got %s", jsonKind(v))}
	}
	return BuildRequest(obj), nil
}

// Form encodes the request as form fields, one per top-level key. Arrays
// become repeated fields, null values are dropped and booleans are sent as
// True/False, which is what the server's form handling expects.
//
// Numbers keep their JSON text (1e5 stays "1e5") and nested objects are sent
// as compact JSON, so values reach the server exactly as written in the
// configuration file. Floats are not reformatted and nested objects are not
// reduced to their keys.
func (b BuildRequest) Form() url.Values {
	form := url.Values{}
	for key, value := range b {
		switch v := value.(type) {
		case nil:
		case []any:
			for _, item := range v {
				if item == nil {
					continue
				}
				form.Add(key, formValue(item))
			}
		default:
			form.Add(key, formValue(v))
		}
	}
	return form
}

func formValue(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
