package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unparseable", "port: [", "load config"},
		{"invalid", "searchProvider: bing\n", "unknown searchProvider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			err := run(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("run() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
