package models

import "testing"

func TestIsValidAlertType(t *testing.T) {
	for _, valid := range []string{AlertTypeBelow, AlertTypeAbove} {
		if !IsValidAlertType(valid) {
			t.Errorf("expected %q to be valid", valid)
		}
	}
	for _, invalid := range []string{"", "both", "percent_change", "BELOW"} {
		if IsValidAlertType(invalid) {
			t.Errorf("expected %q to be invalid", invalid)
		}
	}
}
