package secure

import (
	"crypto/subtle"
	"errors"
	"runtime"
	"sync"
	"weak"

	"github.com/awnumar/memguard"
)

// ErrDestroyed is returned when a destroyed buffer is accessed.
var ErrDestroyed = errors.New("secure buffer has been destroyed")

// Buffer holds sensitive bytes and wipes them on destruction.
type Buffer struct {
	mu   sync.RWMutex
	data []byte
	// destroyed tracks if this buffer has been destroyed to allow
	// idempotent Destroy() calls and prevent use after destroy
	destroyed bool
	ref       weak.Pointer[Buffer]
}

// live tracks every buffer not yet destroyed so Purge can wipe them. Weak
// references leave collection and the finalizer backstop untouched.
var live = struct {
	sync.Mutex
	set map[weak.Pointer[Buffer]]struct{}
}{set: make(map[weak.Pointer[Buffer]]struct{})}

// NewBuffer takes ownership of data. The caller must not keep or modify
// the slice afterwards; it will be wiped when the buffer is destroyed.
func NewBuffer(data []byte) *Buffer {
	if data == nil {
		data = []byte{}
	}
	b := &Buffer{data: data}
	b.ref = weak.Make(b)
	live.Lock()
	live.set[b.ref] = struct{}{}
	live.Unlock()
	runtime.SetFinalizer(b, (*Buffer).Destroy)
	return b
}

// Live returns the number of buffers not yet destroyed.
func Live() int {
	live.Lock()
	defer live.Unlock()
	return len(live.set)
}

// Purge destroys every live buffer and then purges memguard's own
// allocations. It is meant for interrupt handlers and process exit.
func Purge() {
	live.Lock()
	pending := make([]*Buffer, 0, len(live.set))
	for ref := range live.set {
		if b := ref.Value(); b != nil {
			pending = append(pending, b)
		}
	}
	live.Unlock()

	for _, b := range pending {
		b.Destroy()
	}
	memguard.Purge()
}

// Open runs fn with read access to the payload. The slice passed to fn must
// not be retained or modified.
func (b *Buffer) Open(fn func([]byte) error) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return ErrDestroyed
	}
	return fn(b.data)
}

// Len returns the payload size in bytes, or 0 after Destroy.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.data)
}

// Destroyed reports whether Destroy has been called.
func (b *Buffer) Destroyed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.destroyed
}

// Equal compares two payloads in constant time with respect to their
// content. Payloads of different lengths compare unequal immediately.
// Destroyed buffers are never equal to anything.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return false
	}
	if b == other {
		return !b.Destroyed()
	}

	// Copy one side out so the two locks are never held together.
	var x []byte
	if err := b.Open(func(p []byte) error {
		x = append(make([]byte, 0, len(p)), p...)
		return nil
	}); err != nil {
		return false
	}
	defer Wipe(x)

	var equal bool
	err := other.Open(func(y []byte) error {
		equal = ConstantTimeEqual(x, y)
		return nil
	})
	return err == nil && equal
}

// Destroy overwrites the payload with zeros and releases it. Calling
// Destroy more than once is safe.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}

	memguard.WipeBytes(b.data)
	b.data = nil
	b.destroyed = true
	runtime.SetFinalizer(b, nil)

	live.Lock()
	delete(live.set, b.ref)
	live.Unlock()
}

// ConstantTimeEqual reports whether x and y are equal. For equal-length
// inputs the running time does not depend on the position of the first
// differing byte.
func ConstantTimeEqual(x, y []byte) bool {
	return subtle.ConstantTimeCompare(x, y) == 1
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}
