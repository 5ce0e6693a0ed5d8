package builtin

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()

	v, ok, err := r.Call("base64('hello')")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "aGVsbG8=", v)

	v, ok, err = r.Call(`urlEncode("a b&c")`)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a+b%26c", v)

	v, ok, err = r.Call("sha256(abc)")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", v)
}

func TestRegistry_UUID(t *testing.T) {
	v, ok, err := NewRegistry().Call("uuid()")

	require.NoError(t, err)
	require.True(t, ok)
	_, parseErr := uuid.Parse(v.(string))
	assert.NoError(t, parseErr)
}

func TestRegistry_Random(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 50; i++ {
		v, ok, err := r.Call("random(5, 7)")
		require.NoError(t, err)
		require.True(t, ok)
		assert.GreaterOrEqual(t, v.(int), 5)
		assert.LessOrEqual(t, v.(int), 7)
	}

	_, ok, err := r.Call("random(x, 7)")
	assert.True(t, ok)
	var argErr *ArgumentError
	assert.ErrorAs(t, err, &argErr)
}

func TestRegistry_RandomString(t *testing.T) {
	v, ok, err := NewRegistry().Call("randomString(12)")

	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, v.(string), 12)
}

func TestRegistry_UnknownFunction(t *testing.T) {
	r := NewRegistry()

	_, ok, err := r.Call("nope()")
	assert.False(t, ok)
	assert.NoError(t, err)

	_, ok, _ = r.Call("not a call")
	assert.False(t, ok)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("answer", func(_ []string) (any, error) { return 42, nil })

	assert.True(t, r.Has("answer"))
	v, ok, err := r.Call("answer()")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestParseArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b, c", "d"}, parseArgs(`a, "b, c", d`))
	assert.Nil(t, parseArgs(""))
}
