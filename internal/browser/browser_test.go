package browser

import "testing"

func TestCommand(t *testing.T) {
	testCases := []struct {
		goos     string
		wantName string
		wantErr  bool
	}{
		{goos: "linux", wantName: "xdg-open"},
		{goos: "darwin", wantName: "open"},
		{goos: "windows", wantName: "cmd"},
		{goos: "plan9", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.goos, func(t *testing.T) {
			name, args, err := command(tc.goos, "https://example.com")
			if tc.wantErr {
				if err == nil {
					t.Error("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if name != tc.wantName {
				t.Errorf("expected command %q, got %q", tc.wantName, name)
			}
			if len(args) == 0 || args[len(args)-1] != "https://example.com" {
				t.Errorf("expected URL as final argument, got %v", args)
			}
		})
	}
}
