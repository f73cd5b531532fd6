package sysutil

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"  DeBuG  ", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		got := SetLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("SetLogLevel(%q) returned %v, want %v", tc.in, got, tc.want)
		}
		if zerolog.GlobalLevel() != tc.want {
			t.Fatalf("SetLogLevel(%q) applied %v, want %v", tc.in, zerolog.GlobalLevel(), tc.want)
		}
	}
}

func TestIsTruthyAndIsFalsy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		if !IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = false", v)
		}
		if IsFalsy(v) {
			t.Fatalf("IsFalsy(%q) = true", v)
		}
	}
	for _, v := range []string{"0", "false", "NO", " off ", "n"} {
		if !IsFalsy(v) {
			t.Fatalf("IsFalsy(%q) = false", v)
		}
		if IsTruthy(v) {
			t.Fatalf("IsTruthy(%q) = true", v)
		}
	}
	// Unset or garbage is neither: callers keep their default.
	for _, v := range []string{"", "  ", "maybe"} {
		if IsTruthy(v) || IsFalsy(v) {
			t.Fatalf("%q should be neither truthy nor falsy", v)
		}
	}
}
