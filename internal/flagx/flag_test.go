package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-d", "vault.db", "-x", "other"},
			allowed: []string{"-d"},
			want:    []string{"-d", "vault.db"},
		},
		{
			name:    "equals form",
			args:    []string{"--database=vault.db", "--relay=nats://localhost"},
			allowed: []string{"--database"},
			want:    []string{"--database=vault.db"},
		},
		{
			name:    "flag without value before another flag",
			args:    []string{"-v", "-d", "vault.db"},
			allowed: []string{"-v", "-d"},
			want:    []string{"-v", "-d", "vault.db"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "b"},
			allowed: nil,
			want:    []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterArgs(tc.args, tc.allowed))
		})
	}
}
