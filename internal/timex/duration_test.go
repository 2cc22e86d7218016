package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	type doc struct {
		D Duration `json:"d"`
	}

	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"string form", `{"d":"30m"}`, 30 * time.Minute, false},
		{"nanoseconds", `{"d":300000000000}`, 5 * time.Minute, false},
		{"bad string", `{"d":"soon"}`, 0, true},
		{"bad type", `{"d":true}`, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var v doc
			err := json.Unmarshal([]byte(tc.in), &v)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.D.Std())
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration(5 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"5m0s"`, string(b))
}
