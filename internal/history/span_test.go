package history

import (
	"testing"
	"time"

	"github.com/edgard/digestbot/internal/errs"
)

func TestParseSpan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		arg     string
		want    Span
		wantErr bool
	}{
		{arg: "24h", want: Span{ByTime: true, Window: 24 * time.Hour}},
		{arg: "1.5h", want: Span{ByTime: true, Window: 90 * time.Minute}},
		{arg: "0h", want: Span{ByTime: true}},
		{arg: "300", want: Span{Count: 300}},
		{arg: " 3 ", want: Span{Count: 3}},
		{arg: "0", want: Span{Count: 0}},
		{arg: "5000", want: Span{Count: MaxRows}},
		{arg: "1e3", want: Span{Count: 1000}},
		{arg: "1e30h", want: Span{ByTime: true, Window: time.Duration(1<<63 - 1)}},
		{arg: "", wantErr: true},
		{arg: "h", wantErr: true},
		{arg: "-3", wantErr: true},
		{arg: "-1h", wantErr: true},
		{arg: "abc", wantErr: true},
		{arg: "12hours", wantErr: true},
		{arg: "Inf", wantErr: true},
		{arg: "+Infh", wantErr: true},
		{arg: "NaN", wantErr: true},
		{arg: "1e400", wantErr: true},
		{arg: "2.5", wantErr: true},
		{arg: "12H", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSpan(tt.arg)
			if tt.wantErr {
				if !errs.Is(err, errs.CodeInvalidArgument) {
					t.Errorf("ParseSpan(%q) error = %v, want invalid argument", tt.arg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSpan(%q) error = %v", tt.arg, err)
			}
			if got != tt.want {
				t.Errorf("ParseSpan(%q) = %+v, want %+v", tt.arg, got, tt.want)
			}
		})
	}
}
