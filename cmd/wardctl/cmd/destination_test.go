package cmd

import "testing"

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		phone string
		valid bool
	}{
		{"+15551234567", true},
		{"+442071838750", true},
		{"+861012345678", true},
		{"15551234567", false},       // missing plus
		{"+05551234567", false},      // leading zero
		{"+1555123", false},          // too short
		{"+1555123456789012", false}, // too long
		{"+1555abc4567", false},      // letters
		{"", false},
	}

	for _, tt := range tests {
		err := validatePhone(tt.phone)
		if tt.valid && err != nil {
			t.Errorf("validatePhone(%q) = %v, want nil", tt.phone, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("validatePhone(%q) = nil, want error", tt.phone)
		}
	}
}

func TestParseEventTypes(t *testing.T) {
	types, err := parseEventTypes("error, warning")
	if err != nil {
		t.Fatalf("parseEventTypes: %v", err)
	}
	if len(types) != 2 {
		t.Errorf("len = %d, want 2", len(types))
	}

	if _, err := parseEventTypes("error,bogus"); err == nil {
		t.Error("expected error for unknown event type")
	}

	types, err = parseEventTypes("")
	if err != nil || types != nil {
		t.Errorf("empty input = (%v, %v), want (nil, nil)", types, err)
	}
}
