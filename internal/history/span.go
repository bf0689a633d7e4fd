package history

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/edgard/digestbot/internal/errs"
)

// Span is a validated /summary argument.
type Span struct {
	// ByTime selects a time window instead of a message count.
	ByTime bool
	Window time.Duration
	Count  int
}

// ParseSpan validates a /summary argument. "<N>h" selects the last N hours
// (fractions allowed); a bare "<N>" selects the last N messages, clamped to
// MaxRows. N must be a non-negative finite number and counts must be whole.
func ParseSpan(arg string) (Span, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return Span{}, errs.InvalidArgument("missing time range or message count")
	}

	numeric, byTime := strings.CutSuffix(arg, "h")
	n, err := strconv.ParseFloat(numeric, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return Span{}, errs.InvalidArgumentf("%q is not a finite number", arg)
	}
	if n < 0 {
		return Span{}, errs.InvalidArgumentf("%q must not be negative", arg)
	}

	if byTime {
		return Span{ByTime: true, Window: hoursToDuration(n)}, nil
	}

	if n != math.Trunc(n) {
		return Span{}, errs.InvalidArgumentf("message count %q must be a whole number", arg)
	}
	return Span{Count: int(min(n, MaxRows))}, nil
}
