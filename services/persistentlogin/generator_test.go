package persistentlogin

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy unavailable")
}

func TestKeyedGenerator_Generate(t *testing.T) {
	generator, err := NewKeyedGenerator([]byte("secret"))
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		value, err := generator.Generate()
		require.NoError(t, err)

		assert.Regexp(t, urlSafe, value)
		assert.NotContains(t, value, ":")
		assert.Len(t, value, 43)
		assert.False(t, seen[value], "duplicate value %s", value)
		seen[value] = true
	}
}

func TestKeyedGenerator_KeyChangesOutput(t *testing.T) {
	a, err := NewKeyedGenerator([]byte("first"))
	require.NoError(t, err)
	b, err := NewKeyedGenerator([]byte("second"))
	require.NoError(t, err)

	fixed := []byte("0123456789abcdef0123456789abcdef")
	a.random = &repeatReader{data: fixed}
	b.random = &repeatReader{data: fixed}

	va, err := a.Generate()
	require.NoError(t, err)
	vb, err := b.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, va, vb)
}

func TestNewKeyedGenerator_Secrets(t *testing.T) {
	t.Run("empty secret uses a random key", func(t *testing.T) {
		generator, err := NewKeyedGenerator(nil)
		require.NoError(t, err)
		assert.Len(t, generator.key, 64)

		value, err := generator.Generate()
		require.NoError(t, err)
		assert.Regexp(t, urlSafe, value)
	})

	t.Run("long secret is hashed down", func(t *testing.T) {
		generator, err := NewKeyedGenerator(make([]byte, 200))
		require.NoError(t, err)
		assert.Len(t, generator.key, 64)

		_, err = generator.Generate()
		require.NoError(t, err)
	})
}

func TestKeyedGenerator_ReaderFailure(t *testing.T) {
	generator, err := NewKeyedGenerator([]byte("secret"))
	require.NoError(t, err)
	generator.random = failingReader{}

	_, err = generator.Generate()

	assert.ErrorIs(t, err, ErrGeneratorFailed)
}

type repeatReader struct {
	data []byte
}

func (r *repeatReader) Read(p []byte) (int, error) {
	return copy(p, r.data), nil
}
