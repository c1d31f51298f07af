package validation

import (
	"testing"
	"time"
)

func TestNormalizeEntityKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Employee", "employee"},
		{" Cost Center ", "costcenter"},
		{"COST CENTER", "costcenter"},
	}
	for _, tt := range tests {
		if got := NormalizeEntityKey(tt.in); got != tt.want {
			t.Errorf("NormalizeEntityKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOptionsWithDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.BatchTimeout != DefaultBatchTimeout || o.SheetTimeout != DefaultSheetTimeout {
		t.Errorf("timeouts = %v, %v", o.BatchTimeout, o.SheetTimeout)
	}
	if o.CacheLimit != DefaultCacheLimit || o.MaxSuggestions != DefaultMaxSuggestions {
		t.Errorf("limits = %d, %d", o.CacheLimit, o.MaxSuggestions)
	}
	if o.Now == nil {
		t.Error("Now not defaulted")
	}

	custom := Options{
		BatchTimeout:   time.Minute,
		SheetTimeout:   30 * time.Second,
		CacheLimit:     10,
		MaxSuggestions: 1,
	}.withDefaults()
	if custom.BatchTimeout != time.Minute || custom.SheetTimeout != 30*time.Second {
		t.Errorf("custom timeouts overridden: %v, %v", custom.BatchTimeout, custom.SheetTimeout)
	}
	if custom.CacheLimit != 10 || custom.MaxSuggestions != 1 {
		t.Errorf("custom limits overridden: %d, %d", custom.CacheLimit, custom.MaxSuggestions)
	}
}
