package logging

import "testing"

func TestNew_KnownLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		if logger := New(level); logger == nil || logger.Logger == nil {
			t.Errorf("expected logger for level %q", level)
		}
	}
}

func TestNew_UnknownLevelFallsBack(t *testing.T) {
	logger := New("verbose")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected logger for unknown level")
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected default logger")
	}
}

func TestWith(t *testing.T) {
	logger := Default().With("component", "test")
	if logger == nil || logger.Logger == nil {
		t.Fatal("expected derived logger")
	}
}
