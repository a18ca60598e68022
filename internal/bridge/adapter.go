package bridge

import (
	"bytes"
	"encoding/json"

	"codeberg.org/mutker/trapbridge/internal/errors"
	"gopkg.in/yaml.v3"
)

// Adapter turns a host payload into call arguments.
type Adapter interface {
	Name() string
	Decode(payload []byte) (Args, error)
}

// NativeAdapter is for hosts that already hold Go values and call
// InvokeArgs directly. It cannot decode byte payloads beyond an empty one.
type NativeAdapter struct{}

func (NativeAdapter) Name() string { return "native" }

func (NativeAdapter) Decode(payload []byte) (Args, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Args{}, nil
	}
	return nil, errors.New().WithMessage(ErrDecodePayload, "native adapter takes no encoded payload")
}

// JSONAdapter decodes JSON objects. Numbers stay json.Number so value
// conversion can tell integers from floats.
type JSONAdapter struct{}

func (JSONAdapter) Name() string { return "json" }

func (JSONAdapter) Decode(payload []byte) (Args, error) {
	args := Args{}
	if len(bytes.TrimSpace(payload)) == 0 {
		return args, nil
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, errors.New().Wrap(ErrDecodePayload, err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

type YAMLAdapter struct{}

func (YAMLAdapter) Name() string { return "yaml" }

func (YAMLAdapter) Decode(payload []byte) (Args, error) {
	args := Args{}
	if len(bytes.TrimSpace(payload)) == 0 {
		return args, nil
	}

	if err := yaml.Unmarshal(payload, &args); err != nil {
		return nil, errors.New().Wrap(ErrDecodePayload, err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// AdapterFor returns the adapter registered under name.
func AdapterFor(name string) (Adapter, bool) {
	switch name {
	case "json":
		return JSONAdapter{}, true
	case "yaml":
		return YAMLAdapter{}, true
	case "native":
		return NativeAdapter{}, true
	default:
		return nil, false
	}
}
