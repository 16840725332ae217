package secret

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secretval/internal/config"
	"github.com/systmms/secretval/internal/hostval"
)

func TestWrapReveal_RoundTrip(t *testing.T) {
	t.Parallel()

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		berlin = time.FixedZone("CET", 3600)
	}

	tests := []struct {
		name string
		in   any
		kind hostval.Kind
	}{
		{"empty string", "", hostval.KindString},
		{"unicode string", "pässwörd 🔑", hostval.KindString},
		{"zero", int64(0), hostval.KindInt},
		{"min int", int64(math.MinInt64), hostval.KindInt},
		{"max int", int64(math.MaxInt64), hostval.KindInt},
		{"true", true, hostval.KindBool},
		{"false", false, hostval.KindBool},
		{"negative zero", math.Copysign(0, -1), hostval.KindFloat},
		{"nan", math.NaN(), hostval.KindFloat},
		{"inf", math.Inf(1), hostval.KindFloat},
		{"neg inf", math.Inf(-1), hostval.KindFloat},
		{"smallest float", math.SmallestNonzeroFloat64, hostval.KindFloat},
		{"empty bytes", []byte{}, hostval.KindBinary},
		{"bytes", []byte{0x00, 0x01, 0xfe, 0xff}, hostval.KindBinary},
		{"date", time.Date(2024, 2, 29, 23, 59, 59, 999999999, berlin), hostval.KindDate},
		{"utc date", time.Unix(0, 0).UTC(), hostval.KindDate},
		{"empty list", []any{}, hostval.KindList},
		{"list", []any{int64(1), "two", []byte{3}, []any{true}}, hostval.KindList},
		{"empty record", map[string]any{}, hostval.KindRecord},
		{"record", map[string]any{"user": "admin", "port": int64(5432), "tags": []any{"a"}}, hostval.KindRecord},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Wrap(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind())
			assert.Equal(t, tt.kind.String(), v.TypeName())

			out, err := Reveal(v)
			require.NoError(t, err)

			switch want := tt.in.(type) {
			case float64:
				assert.Equal(t, math.Float64bits(want), math.Float64bits(out.(float64)))
			case time.Time:
				got := out.(time.Time)
				assert.True(t, want.Equal(got))
				assert.Equal(t, want.Location().String(), got.Location().String())
				assert.Equal(t, want.Format(time.RFC3339Nano), got.Format(time.RFC3339Nano))
			default:
				assert.Equal(t, tt.in, out)
			}
		})
	}
}

func TestWrap_NormalisesNumbers(t *testing.T) {
	t.Parallel()

	v, err := Wrap(42)
	require.NoError(t, err)
	out, err := Reveal(v)
	require.NoError(t, err)
	assert.Equal(t, int64(42), out)

	v, err = Wrap(float32(1.5))
	require.NoError(t, err)
	out, err = Reveal(v)
	require.NoError(t, err)
	assert.Equal(t, 1.5, out)
}

func TestWrap_Errors(t *testing.T) {
	t.Parallel()

	existing, err := Wrap("x")
	require.NoError(t, err)

	tests := []struct {
		name   string
		in     any
		reason error
	}{
		{"nil", nil, ErrEmptyInput},
		{"func", func() {}, ErrUnsupportedKind},
		{"channel", make(chan int), ErrUnsupportedKind},
		{"struct", struct{ A int }{1}, ErrUnsupportedKind},
		{"uint64 overflow", uint64(math.MaxUint64), ErrUnsupportedKind},
		{"list with func", []any{"ok", func() {}}, ErrUnsupportedKind},
		{"invalid utf-8 text", "pa\xffss", ErrUnsupportedKind},
		{"invalid utf-8 in record", map[string]any{"k": "pa\xffss"}, ErrUnsupportedKind},
		{"already secret", existing, ErrUnsupportedKind},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := Wrap(tt.in)
			assert.Nil(t, v)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.reason)

			var we *WrapError
			require.ErrorAs(t, err, &we)
			assert.NotEmpty(t, we.Kind)
		})
	}
}

func TestWrap_TakesPrivateCopy(t *testing.T) {
	t.Parallel()

	raw := []byte("token")
	rec := map[string]any{"k": []any{"v"}}

	b, err := Wrap(raw)
	require.NoError(t, err)
	r, err := Wrap(rec)
	require.NoError(t, err)

	raw[0] = 'X'
	rec["k"].([]any)[0] = "changed"
	rec["new"] = "field"

	out, err := Reveal(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("token"), out)

	// Mutating a revealed copy does not reach the secret either.
	out.([]byte)[0] = 'Y'
	again, _ := Reveal(b)
	assert.Equal(t, []byte("token"), again)

	rout, err := Reveal(r)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": []any{"v"}}, rout)
}

func TestLen(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]int{"": 0, "abc": 3, "héllo": 5} {
		v, err := Wrap(in)
		require.NoError(t, err)
		n, ok := v.Len()
		assert.True(t, ok)
		assert.Equal(t, want, n)
	}

	v, _ := Wrap([]any{1, 2})
	n, ok := v.Len()
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	v, _ = Wrap(3.14)
	_, ok = v.Len()
	assert.False(t, ok)
}

func TestDestroy(t *testing.T) {
	t.Parallel()

	v, err := Wrap("do-not-keep")
	require.NoError(t, err)

	var alias []byte
	require.NoError(t, v.buf.Open(func(b []byte) error {
		alias = b
		return nil
	}))

	v.Destroy()
	v.Destroy()

	assert.True(t, v.Destroyed())
	assert.Equal(t, make([]byte, len("do-not-keep")), alias)

	_, err = Reveal(v)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	assert.False(t, IsSecret(v))
	_, err = Render(v, "display", nil)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	assert.Equal(t, "<redacted:string>", v.String())
}

func TestDestroy_WipesNestedBytes(t *testing.T) {
	t.Parallel()

	v, err := Wrap([]any{[]byte("nested-key"), map[string]any{"b": []byte("deeper")}})
	require.NoError(t, err)

	list := v.composite.([]any)
	first := list[0].([]byte)
	deeper := list[1].(map[string]any)["b"].([]byte)

	v.Destroy()
	assert.Equal(t, make([]byte, 10), first)
	assert.Equal(t, make([]byte, 6), deeper)
}

func TestDestroy_Nil(t *testing.T) {
	t.Parallel()

	var v *Value
	assert.NotPanics(t, v.Destroy)
}

func TestZeroValue_IsNotASecret(t *testing.T) {
	t.Parallel()

	zero := &Value{}
	live := mustWrap(t, "x")

	assert.False(t, IsSecret(zero))

	_, err := TypeOf(zero)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)

	assert.NotPanics(t, func() {
		_, err = Reveal(zero)
	})
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)

	_, err = Render(zero, config.OccasionDisplay, nil)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)

	_, err = Compare(zero, live)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	assert.False(t, zero.Equal(&Value{}))

	_, err = zero.MarshalJSON()
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	assert.NotContains(t, fmt.Sprint(zero), "PANIC")
}

func TestUse(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		var seen *Value
		err := Use("payload", func(v *Value) error {
			seen = v
			out, err := Reveal(v)
			require.NoError(t, err)
			assert.Equal(t, "payload", out)
			return nil
		})
		require.NoError(t, err)
		assert.True(t, seen.Destroyed())
	})

	t.Run("error path", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		var seen *Value
		err := Use([]byte("payload"), func(v *Value) error {
			seen = v
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.True(t, seen.Destroyed())
	})

	t.Run("panic path", func(t *testing.T) {
		t.Parallel()

		var seen *Value
		assert.Panics(t, func() {
			_ = Use(int64(7), func(v *Value) error {
				seen = v
				panic("unwind")
			})
		})
		require.NotNil(t, seen)
		assert.True(t, seen.Destroyed())
	})

	t.Run("wrap failure", func(t *testing.T) {
		t.Parallel()

		called := false
		err := Use(nil, func(*Value) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, ErrEmptyInput)
		assert.False(t, called)
	})
}

func TestUnwrapAndIsSecret(t *testing.T) {
	t.Parallel()

	v, err := Wrap("x")
	require.NoError(t, err)

	out, err := Unwrap(v)
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	for _, x := range []any{"x", 42, nil, (*Value)(nil)} {
		_, err := Unwrap(x)
		assert.ErrorIs(t, err, ErrRevealOnNonSecret)
		assert.False(t, IsSecret(x))
		_, err = TypeOf(x)
		assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	}

	assert.True(t, IsSecret(v))
	name, err := TypeOf(v)
	require.NoError(t, err)
	assert.Equal(t, "string", name)

	_, err = Reveal(nil)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	mustWrap := func(x any) *Value {
		v, err := Wrap(x)
		require.NoError(t, err)
		return v
	}

	tests := []struct {
		name string
		a, b *Value
		want bool
	}{
		{"equal strings", mustWrap("secret"), mustWrap("secret"), true},
		{"different strings", mustWrap("secret"), mustWrap("secreT"), false},
		{"different lengths", mustWrap("secret"), mustWrap("secrets"), false},
		{"equal ints", mustWrap(7), mustWrap(int64(7)), true},
		{"cross kind", mustWrap("1"), mustWrap(1), false},
		{"nan equals itself bitwise", mustWrap(math.NaN()), mustWrap(math.NaN()), true},
		{"equal bytes", mustWrap([]byte{1, 2}), mustWrap([]byte{1, 2}), true},
		{"equal lists", mustWrap([]any{1, "a"}), mustWrap([]any{1, "a"}), true},
		{"list order matters", mustWrap([]any{1, 2}), mustWrap([]any{2, 1}), false},
		{"record key order ignored", mustWrap(map[string]any{"a": 1, "b": 2}), mustWrap(map[string]any{"b": 2, "a": 1}), true},
		{"empty list vs empty record", mustWrap([]any{}), mustWrap(map[string]any{}), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, Equal(tt.b, tt.a))
		})
	}
}

func TestCompare_NonSecrets(t *testing.T) {
	t.Parallel()

	v, err := Wrap("a")
	require.NoError(t, err)
	gone, err := Wrap("a")
	require.NoError(t, err)
	gone.Destroy()

	_, err = Compare(v, nil)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	_, err = Compare(v, gone)
	assert.ErrorIs(t, err, ErrRevealOnNonSecret)
	assert.False(t, Equal(v, gone))
}

// TestCompare_TimingIndependentOfMismatchPosition compares the median cost
// of comparisons that differ in the first byte with ones that differ in the
// last byte. A short-circuiting comparison would make the first much
// cheaper.
func TestCompare_TimingIndependentOfMismatchPosition(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}

	const size = 1 << 14
	base := make([]byte, size)
	early := make([]byte, size)
	late := make([]byte, size)
	early[0] = 1
	late[size-1] = 1

	a, _ := Wrap(base)
	e, _ := Wrap(early)
	l, _ := Wrap(late)

	measure := func(other *Value) time.Duration {
		const rounds = 51
		samples := make([]time.Duration, rounds)
		for i := range samples {
			start := time.Now()
			for j := 0; j < 20; j++ {
				Equal(a, other)
			}
			samples[i] = time.Since(start)
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
		return samples[rounds/2]
	}

	measure(e) // warm up
	earlyCost, lateCost := measure(e), measure(l)
	ratio := float64(lateCost) / float64(earlyCost)
	assert.InDelta(t, 1.0, ratio, 0.5, "early=%v late=%v", earlyCost, lateCost)
}

func TestConcurrentRevealAndDestroy(t *testing.T) {
	t.Parallel()

	v, err := Wrap([]byte("concurrent"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				out, err := Reveal(v)
				if err != nil {
					assert.ErrorIs(t, err, ErrRevealOnNonSecret)
					continue
				}
				assert.Equal(t, []byte("concurrent"), out)
				_ = v.String()
			}
		}()
	}
	v.Destroy()
	wg.Wait()
}
