package vbhtlog

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"warn":  LevelWarning,
		"error": LevelError,
		"off":   LevelOff,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseLevelPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unknown level")
		}
	}()
	ParseLevel("nonsense")
}

func TestLoggerRespectsLevel(t *testing.T) {
	l := New("test", LevelError)
	// Below the threshold: must not panic, should be silently skipped.
	l.Debugf("should not print")
	l.Infof("should not print")
	l.Warningf("should not print")
	l.Errorf("should print: %d", 1)
}
