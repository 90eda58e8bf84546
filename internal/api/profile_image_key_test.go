package api

import "testing"

func TestIsValidProfileImageKey(t *testing.T) {
	cases := []struct {
		name   string
		userID uint
		key    string
		want   bool
	}{
		{"own prefix png", 7, "profile-images/7/abc.png", true},
		{"own prefix webp", 7, "profile-images/7/abc.webp", true},
		{"foreign prefix", 7, "profile-images/8/abc.png", false},
		{"traversal", 7, "profile-images/7/../8/abc.png", false},
		{"backslash", 7, "profile-images/7/a\\b.png", false},
		{"wrong extension", 7, "profile-images/7/abc.svg", false},
		{"empty", 7, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isValidProfileImageKey(tc.userID, tc.key); got != tc.want {
				t.Fatalf("key %q: got %v want %v", tc.key, got, tc.want)
			}
		})
	}
}
