package secure

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "creates buffer from bytes", data: []byte("my-secret-password")},
		{name: "handles empty data", data: []byte{}},
		{name: "handles nil data", data: nil},
		{name: "handles binary data", data: []byte{0x00, 0xFF, 0x10, 0x20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			expected := append([]byte{}, tt.data...)
			buf := NewBuffer(tt.data)
			defer buf.Destroy()

			err := buf.Open(func(b []byte) error {
				assert.True(t, bytes.Equal(expected, b))
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, len(expected), buf.Len())
		})
	}
}

// Not parallel: Purge destroys every live buffer in the process.
func TestPurge_DestroysLiveBuffers(t *testing.T) {
	a := NewBuffer([]byte("first"))
	b := NewBuffer([]byte("second"))
	var aliasA []byte
	require.NoError(t, a.Open(func(p []byte) error {
		aliasA = p
		return nil
	}))
	before := Live()
	require.GreaterOrEqual(t, before, 2)

	Purge()

	assert.True(t, a.Destroyed())
	assert.True(t, b.Destroyed())
	assert.Equal(t, make([]byte, len("first")), aliasA)
	assert.LessOrEqual(t, Live(), before-2)

	// Destroy after Purge is still a no-op.
	assert.NotPanics(t, a.Destroy)
}

func TestBuffer_DestroyLeavesRegistry(t *testing.T) {
	t.Parallel()

	buf := NewBuffer([]byte("tracked"))
	buf.Destroy()

	live.Lock()
	_, tracked := live.set[buf.ref]
	live.Unlock()
	assert.False(t, tracked)
}

func TestBuffer_DestroyWipesMemory(t *testing.T) {
	t.Parallel()

	data := []byte("sensitive-data-to-wipe")
	alias := data[:len(data):len(data)]

	buf := NewBuffer(data)
	buf.Destroy()

	assert.Equal(t, make([]byte, len(alias)), alias, "payload must be zeroed on destroy")
	assert.True(t, buf.Destroyed())
	assert.Equal(t, 0, buf.Len())

	err := buf.Open(func([]byte) error { return nil })
	assert.ErrorIs(t, err, ErrDestroyed)

	// Double destroy should not panic (idempotent)
	buf.Destroy()
}

func TestBuffer_OpenPropagatesError(t *testing.T) {
	t.Parallel()

	buf := NewBuffer([]byte("x"))
	defer buf.Destroy()

	sentinel := errors.New("boom")
	err := buf.Open(func([]byte) error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
}

func TestBuffer_Equal(t *testing.T) {
	t.Parallel()

	a := NewBuffer([]byte("same-value"))
	b := NewBuffer([]byte("same-value"))
	c := NewBuffer([]byte("diff-value"))
	d := NewBuffer([]byte("short"))
	defer a.Destroy()
	defer b.Destroy()
	defer c.Destroy()
	defer d.Destroy()

	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
	assert.False(t, a.Equal(nil))

	e := NewBuffer([]byte("same-value"))
	e.Destroy()
	assert.False(t, a.Equal(e))
	assert.False(t, e.Equal(e))
}

func TestBuffer_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	expected := []byte("concurrent-secret")
	buf := NewBuffer(append([]byte{}, expected...))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := buf.Open(func(b []byte) error {
				if !bytes.Equal(b, expected) {
					t.Error("Data mismatch in concurrent access")
				}
				return nil
			})
			if err != nil && !errors.Is(err, ErrDestroyed) {
				t.Errorf("Open() error = %v", err)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		buf.Destroy()
	}()
	wg.Wait()

	assert.True(t, buf.Destroyed())
}

func TestWipe(t *testing.T) {
	t.Parallel()

	b := []byte("wipe")
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}

// BenchmarkBuffer measures the overhead of secure buffer operations
func BenchmarkBuffer(b *testing.B) {
	b.Run("Equal", func(b *testing.B) {
		x := NewBuffer(bytes.Repeat([]byte("a"), 64))
		y := NewBuffer(bytes.Repeat([]byte("a"), 64))
		defer x.Destroy()
		defer y.Destroy()

		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			x.Equal(y)
		}
	})
}
