package secret

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/systmms/secretval/internal/config"
)

// present renders v for the presentation channel. It never fails: any
// render error degrades to the built-in marker, never to content.
func (v *Value) present(occ config.Occasion) string {
	if v == nil {
		return "<nil>"
	}
	var src ConfigSource
	if v.renderer != nil {
		src = v.renderer.src
	}
	out, err := Render(v, occ, src)
	if err != nil {
		if v.renderer != nil {
			v.renderer.logger.Warn("%s secret rendered with the fallback marker: %v", v.kind, err)
		}
		return fallback(v)
	}
	return out
}

// String renders the value for display.
func (v *Value) String() string {
	return v.present(config.OccasionDisplay)
}

// GoString renders the value for debugging (%#v).
func (v *Value) GoString() string {
	return v.present(config.OccasionDebug)
}

// Format implements fmt.Formatter so that no verb, including %x and %d,
// can reach the payload. %+v and %#v use the debug occasion; everything
// else uses display. %q quotes the rendered form.
func (v *Value) Format(f fmt.State, verb rune) {
	occ := config.OccasionDisplay
	if verb == 'v' && (f.Flag('+') || f.Flag('#')) {
		occ = config.OccasionDebug
	}
	out := v.present(occ)
	if verb == 'q' {
		out = strconv.Quote(out)
	}
	io.WriteString(f, out)
}

// LogValue implements slog.LogValuer using the log occasion.
func (v *Value) LogValue() slog.Value {
	return slog.StringValue(v.present(config.OccasionLog))
}

var (
	_ fmt.Stringer   = (*Value)(nil)
	_ fmt.GoStringer = (*Value)(nil)
	_ fmt.Formatter  = (*Value)(nil)
	_ slog.LogValuer = (*Value)(nil)
)
