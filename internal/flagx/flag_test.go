package flagx

import (
	"os"
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
			args:    []string{"-id", "2", "-x", "y"},
			allowed: []string{"-id"},
			want:    []string{"-id", "2"},
		},
		{
			name:    "equals form",
			args:    []string{"-peers=a:1,b:2", "-q"},
			allowed: []string{"-peers"},
			want:    []string{"-peers=a:1,b:2"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-a", "-id", "1"},
			allowed: []string{"-a", "-id"},
			want:    []string{"-a", "-id", "1"},
		},
		{
			name:    "flag at end without value",
			args:    []string{"-a"},
			allowed: []string{"-a"},
			want:    []string{"-a"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-x", "1", "positional"},
			allowed: []string{"-a"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"localhost:8001", "localhost:8002"}, SplitList("localhost:8001, localhost:8002"))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a,,b, "))
	assert.Empty(t, SplitList(""))
}

func TestJsonConfigFlags(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	os.Args = []string{"bin", "-nodes", "x:1", "-c", "client.json"}
	assert.Equal(t, "client.json", JsonConfigFlags())

	os.Args = []string{"bin", "-config=other.json"}
	assert.Equal(t, "other.json", JsonConfigFlags())

	os.Args = []string{"bin"}
	assert.Equal(t, "", JsonConfigFlags())
}
