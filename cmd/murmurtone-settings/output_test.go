package main

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

func TestValidateOutput(t *testing.T) {
	for _, format := range []string{outputText, outputJSON, outputYAML} {
		if err := validateOutput(format); err != nil {
			t.Fatalf("format %q: unexpected error: %v", format, err)
		}
	}
	if err := validateOutput("xml"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestRender(t *testing.T) {
	tree := settings.Tree{"sample_rate": 16000, "language": "en", "noise_gate_enabled": true}

	tests := []struct {
		name   string
		format string
		value  any
		want   string
	}{
		{
			name:   "text tree is sorted",
			format: outputText,
			value:  tree,
			want:   "language = en\nnoise_gate_enabled = true\nsample_rate = 16000\n",
		},
		{name: "text string is raw", format: outputText, value: "tiny", want: "tiny\n"},
		{name: "text list is json", format: outputText, value: []string{"um", "uh"}, want: "[\"um\",\"uh\"]\n"},
		{name: "text plain map", format: outputText, value: map[string]any{"b": 2, "a": "x"}, want: "a = x\nb = 2\n"},
		{name: "json", format: outputJSON, value: map[string]any{"language": "en"}, want: "{\n  \"language\": \"en\"\n}\n"},
		{name: "yaml", format: outputYAML, value: map[string]any{"language": "en"}, want: "language: en\n"},
	}

	for _, tc := range tests {
		var buf bytes.Buffer
		if err := render(&buf, tc.format, tc.value); err != nil {
			t.Fatalf("%s: render: %v", tc.name, err)
		}
		if buf.String() != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, buf.String())
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{raw: "44100", want: float64(44100)},
		{raw: "true", want: true},
		{raw: `["um","uh"]`, want: []any{"um", "uh"}},
		{raw: `{"from":"teh","to":"the"}`, want: map[string]any{"from": "teh", "to": "the"}},
		{raw: "push_to_talk", want: "push_to_talk"},
		{raw: `"quoted"`, want: "quoted"},
		{raw: "  ", want: ""},
		{raw: "new paragraph", want: "new paragraph"},
	}

	for _, tc := range tests {
		if got := parseValue(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("parseValue(%q): expected %#v, got %#v", tc.raw, tc.want, got)
		}
	}
}

func TestDisplayValue(t *testing.T) {
	if got := displayValue("en"); got != "en" {
		t.Fatalf("expected raw string, got %q", got)
	}
	if got := displayValue(nil); got != "null" {
		t.Fatalf("expected null, got %q", got)
	}
	if got := displayValue(func() {}); !strings.HasPrefix(got, "0x") {
		t.Fatalf("expected pointer fallback for unencodable value, got %q", got)
	}
}
