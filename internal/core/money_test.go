package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "dot separator", input: "12.34", want: "12.34"},
		{name: "comma separator", input: "12,34", want: "12.34"},
		{name: "integer", input: "100", want: "100"},
		{name: "zero is allowed", input: "0", want: "0"},
		{name: "third decimal rounds down", input: "12.344", want: "12.34"},
		{name: "third decimal rounds up", input: "12.346", want: "12.35"},
		{name: "surrounding spaces", input: "  7.50 ", want: "7.5"},
		{name: "negative rejected", input: "-5", wantErr: true},
		{name: "explicit plus rejected", input: "+5", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "two separators", input: "1.2.3", wantErr: true},
		{name: "letters", input: "12a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want ErrInvalidAmount", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error = %v", tt.input, err)
			}
			if !got.Equal(gbp(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestMoneyString(t *testing.T) {
	d, _ := ParseAmount("23.7")
	if got := MoneyString(d); got != "23.70" {
		t.Errorf("MoneyString(23.7) = %q, want 23.70", got)
	}
}
