package bridge_test

import (
	"testing"

	"codeberg.org/mutker/trapbridge/internal/bridge"
	"codeberg.org/mutker/trapbridge/internal/errors"
	"codeberg.org/mutker/trapbridge/internal/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgsAccessors(t *testing.T) {
	args := bridge.Args{
		"s":     "x",
		"empty": "",
		"n":     5,
		"obj":   map[string]any{"a": 1},
		"yaml":  map[any]any{"b": 2},
		"nil":   nil,
	}

	s, ok := args.String("s")
	assert.True(t, ok)
	assert.Equal(t, "x", s)

	_, ok = args.String("n")
	assert.False(t, ok)

	v, ok := args.Value("n")
	require.True(t, ok)
	assert.True(t, value.OfInt(5).Equal(v))

	_, ok = args.Value("nil")
	assert.False(t, ok)

	obj, ok := args.Object("yaml")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"b": 2}, obj)

	_, ok = args.Object("s")
	assert.False(t, ok)
}

func TestArgsRequire(t *testing.T) {
	args := bridge.Args{"empty": "", "obj": map[string]any{}}

	_, err := args.RequireString("empty")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCallValidation))
	assert.Equal(t, "Required property 'empty' is not set", err.Error())

	_, err = args.RequireValue("missing")
	assert.Equal(t, "Required property 'missing' is not set", err.Error())

	obj, err := args.RequireObject("obj")
	require.NoError(t, err)
	assert.Empty(t, obj)
}

func TestJSONAdapterTrialOrder(t *testing.T) {
	args, err := bridge.JSONAdapter{}.Decode([]byte(`{"i":1,"f":1.5,"b":true,"s":"1","e":1e2}`))
	require.NoError(t, err)

	kinds := map[string]value.Kind{}
	for k := range args {
		v, ok := args.Value(k)
		require.True(t, ok)
		kinds[k] = v.Kind()
	}

	assert.Equal(t, map[string]value.Kind{
		"i": value.Int,
		"f": value.Float,
		"b": value.Bool,
		"s": value.String,
		"e": value.Int,
	}, kinds)
}

func TestAdapterFor(t *testing.T) {
	for _, name := range []string{"json", "yaml", "native"} {
		a, ok := bridge.AdapterFor(name)
		require.True(t, ok, name)
		assert.Equal(t, name, a.Name())
	}

	_, ok := bridge.AdapterFor("xml")
	assert.False(t, ok)
}

func TestEmptyPayloads(t *testing.T) {
	for _, a := range []bridge.Adapter{bridge.JSONAdapter{}, bridge.YAMLAdapter{}, bridge.NativeAdapter{}} {
		args, err := a.Decode(nil)
		require.NoError(t, err, a.Name())
		assert.Empty(t, args)
	}

	args, err := bridge.JSONAdapter{}.Decode([]byte("null"))
	require.NoError(t, err)
	assert.NotNil(t, args)

	_, err = bridge.NativeAdapter{}.Decode([]byte(`{"a":1}`))
	assert.True(t, errors.HasCode(err, bridge.ErrDecodePayload))
}
