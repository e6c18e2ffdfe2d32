package validation

import "testing"

func TestValidatePhone(t *testing.T) {
	valid := []string{"5547999998888", "+5547999998888", "447911123456", "12025550123"}
	for _, phone := range valid {
		if err := ValidatePhone(phone); err != nil {
			t.Errorf("ValidatePhone(%q) = %v", phone, err)
		}
	}

	invalid := []string{"", "047999998888", "0", "abc", "+0123456", "55 47 9999"}
	for _, phone := range invalid {
		if err := ValidatePhone(phone); err == nil {
			t.Errorf("ValidatePhone(%q) accepted", phone)
		}
	}
}

func TestCleanDigits(t *testing.T) {
	tests := []struct{ in, want string }{
		{"+55 (47) 99999-8888", "5547999998888"},
		{"123456789012345678@lid", "123456789012345678"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := CleanDigits(tc.in); got != tc.want {
			t.Errorf("CleanDigits(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsPlausiblePhone(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"5547999998888", true},
		{"1202555012", true},
		{"123456789", false},
		{"123456789012345678", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := IsPlausiblePhone(tc.digits); got != tc.want {
			t.Errorf("IsPlausiblePhone(%q) = %v, want %v", tc.digits, got, tc.want)
		}
	}
}
