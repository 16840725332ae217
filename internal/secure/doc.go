// Package secure provides memory-hygienic storage for secret payloads.
//
// A Buffer owns the canonical bytes of one secret. The bytes are only
// reachable through scoped access (Open) and are overwritten with zeros by
// Destroy, using memguard's wiping primitives so the compiler cannot elide
// the writes.
//
// # Usage
//
//	buf := secure.NewBuffer(payload) // takes ownership of payload
//	defer buf.Destroy()              // always destroy when done
//
//	err := buf.Open(func(b []byte) error {
//	    // b is only valid inside this function
//	    return use(b)
//	})
//
// # Lifetime
//
// Go has no deterministic destructors. Callers must call Destroy on every
// exit path, including error paths; deferring it right after construction
// is the expected pattern. A finalizer wipes buffers that become
// unreachable without being destroyed, but finalizers run at an unspecified
// time and must not be relied on.
//
// At process exit, call memguard.Purge() to wipe any memguard-managed
// memory as well.
//
// # Security Guarantees
//
//   - Payload bytes are zeroed before the buffer is released
//   - Comparison of two buffers takes time independent of where they differ
//
// It does NOT protect against:
//
//   - Copies the caller makes from inside Open
//   - Attackers with access to the running process's memory
//   - Swapping of the payload to disk
package secure
