package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSize(t *testing.T) {
	assert.NoError(t, Size(make([]byte, 10), 10))
	assert.Error(t, Size(make([]byte, 11), 10))
}

func TestDepth(t *testing.T) {
	flat := map[string]interface{}{"operation": "zip", "files": []interface{}{"a", "b"}}
	assert.NoError(t, Depth(flat, 2))

	var deep interface{} = "leaf"
	for i := 0; i < 5; i++ {
		deep = []interface{}{deep}
	}
	assert.NoError(t, Depth(deep, 5))
	assert.Error(t, Depth(deep, 4))
}

func TestPath(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"native", "/srv/data/report.txt", false},
		{"unc", `\\nas\public\a.zip\x.txt`, false},
		{"empty", "", true},
		{"nul byte", "/srv/a\x00b", true},
		{"too long", "/" + strings.Repeat("a", MaxPathLength), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Path("sourcePath", tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestName(t *testing.T) {
	assert.NoError(t, Name("newName", "b.txt"))
	for _, bad := range []string{"", ".", "..", "a/b", `a\b`, strings.Repeat("n", MaxNameLength+1)} {
		assert.Error(t, Name("newName", bad), bad)
	}
}
