// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "testing"

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		input   string
		want    ColorMode
		wantErr bool
	}{
		{"color", ModeColor, false},
		{"Color", ModeColor, false},
		{"COLOUR", ModeColor, false},
		{"gray", ModeGray, false},
		{"Grey", ModeGray, false},
		{"grayscale", ModeGray, false},
		{"lineart", ModeLineart, false},
		{"Lineart", ModeLineart, false},
		{"line-art", ModeLineart, false},
		{"bw", ModeLineart, false},
		{"  gray  ", ModeGray, false},
		{"sepia", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseColorMode(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseColorMode(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseColorMode(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseColorMode(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidResolution(t *testing.T) {
	for _, dpi := range SupportedResolutions {
		if !ValidResolution(dpi) {
			t.Errorf("ValidResolution(%d) = false, want true", dpi)
		}
	}
	for _, dpi := range []int{0, -300, 72, 299, 1200} {
		if ValidResolution(dpi) {
			t.Errorf("ValidResolution(%d) = true, want false", dpi)
		}
	}
}
