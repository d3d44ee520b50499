package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUploadPath(t *testing.T) {
	tests := []struct {
		name      string
		uploadDir string
		path      string
		want      string
	}{
		{"relative joins upload dir", "/app/uploads", "policy.txt", "/app/uploads/policy.txt"},
		{"nested relative", "/app/uploads", "reports/q3.pdf", "/app/uploads/reports/q3.pdf"},
		{"absolute passes through", "/app/uploads", "/tmp/policy.txt", "/tmp/policy.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveUploadPath(tt.uploadDir, tt.path))
		})
	}
}
