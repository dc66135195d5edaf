package audit

import "testing"

func TestIsSensitive(t *testing.T) {
	cases := []struct {
		name    string
		action  string
		details map[string]any
		want    bool
	}{
		{"sensitive action", "user_authentication", nil, true},
		{"secrets action", "secrets_management", nil, true},
		{"plain action", "task_completed", nil, false},
		{"keyword in value", "deployment", map[string]any{"note": "rotate the API_KEY"}, true},
		{"keyword in key", "deployment", map[string]any{"password": "x"}, true},
		{"nested keyword", "deployment", map[string]any{"env": map[string]any{"token": "t"}}, true},
		{"benign details", "deployment", map[string]any{"region": "eu-west-1"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isSensitive(tc.action, tc.details); got != tc.want {
				t.Errorf("isSensitive(%q, %v) = %v, want %v", tc.action, tc.details, got, tc.want)
			}
		})
	}
}
