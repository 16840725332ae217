// Package secret provides Value, a wrapper that keeps sensitive values out
// of logs and terminal output while letting them flow through a pipeline.
//
// # Kinds
//
// A Value holds exactly one of eight payload kinds:
//
//	string   text, length in runes
//	int      int64
//	bool     boolean
//	float    float64 (NaN and infinities preserved bit for bit)
//	binary   []byte, length in bytes
//	date     time.Time, location preserved
//	list     []any, length in elements
//	record   map[string]any, length in fields
//
// Anything else is rejected by Wrap with ErrUnsupportedKind; nil is
// rejected with ErrEmptyInput.
//
// # Two Channels
//
// A Value has two deliberately different serialisations:
//
//   - The presentation channel (String, GoString, Format, LogValue) always
//     renders through the configured redaction template and never emits
//     content unless the configuration explicitly asks for it.
//   - The data channel (MarshalJSON, MarshalProto) carries the payload
//     verbatim, so that wrap, transfer and unwrap is lossless.
//
// Keep the data channel on trusted paths only.
//
// # Rendering
//
// Templates are resolved in this order: show_unredacted, the instance
// template given to WrapWith, partial redaction, the per-kind template, the
// per-occasion template (display, debug, log), and finally the default
// template. With the built-in defaults:
//
//	v, _ := secret.Wrap(42)
//	fmt.Println(v) // <redacted:int>
//
// A Renderer binds values to a configuration source, usually a
// *config.Manager, and writes an audit line on every reveal:
//
//	r := secret.NewRenderer(manager, logger)
//	v, _ := r.WrapWith("hunter22", "{{replicate(character='*', length=secret_length)}}")
//	fmt.Println(v) // ********
//
// # Lifetime
//
// Destroy overwrites the payload with zeros. Go has no destructors, so
// callers must call Destroy on every exit path, or use Use, which wraps,
// calls a function and destroys the value even if the function panics:
//
//	err := secret.Use(token, func(v *secret.Value) error {
//	    return send(v)
//	})
//
// A finalizer on the underlying buffer wipes storage that was never
// destroyed explicitly, but its timing is not guaranteed.
//
// # Equality
//
// Compare and Equal run in constant time over the canonical bytes of
// same-kind payloads. Values of different kinds are unequal after a single
// kind check.
package secret
