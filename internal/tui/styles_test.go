package tui

import (
	"testing"

	catppuccin "github.com/catppuccin/go"

	"venvkiller/internal/discovery"
)

func TestFlavorFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"latte", catppuccin.Latte.Base().Hex},
		{"frappe", catppuccin.Frappe.Base().Hex},
		{"macchiato", catppuccin.Macchiato.Base().Hex},
		{"mocha", catppuccin.Mocha.Base().Hex},
		{"bogus", catppuccin.Mocha.Base().Hex},
	}
	for _, tt := range tests {
		if got := flavorFromName(tt.name).Base().Hex; got != tt.want {
			t.Errorf("flavorFromName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestAgeStyle_DistinctColors(t *testing.T) {
	s := NewStyles("mocha")
	recent := s.AgeStyle(discovery.AgeRecent).GetForeground()
	normal := s.AgeStyle(discovery.AgeNormal).GetForeground()
	old := s.AgeStyle(discovery.AgeOld).GetForeground()
	if recent == normal || normal == old || recent == old {
		t.Errorf("age classes share colors: %v %v %v", recent, normal, old)
	}
}
