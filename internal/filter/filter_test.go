package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		substring string
		line      string
		match     bool
	}{
		{"x", "x,9\n", true},
		{"x", "id,val\n", false},
		{"ERROR", "2024-01-15,ERROR,disk full\n", true},
		{"ERROR", "2024-01-15,error,disk full\n", false}, // Case sensitive
		{"a.b", "axb", false},                            // No regex semantics
		{"a.b", "a.b", true},
		{"[0-9]", "[0-9]", true},
		{",9\n", "x,9\n", true},
		{"long needle", "short", false},
		{"", "", true},
		{"", "anything\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.substring+"/"+tt.line, func(t *testing.T) {
			assert.Equal(t, tt.match, New(tt.substring).Match([]byte(tt.line)))
		})
	}
}

func TestNoop(t *testing.T) {
	assert.True(t, NewNoop().IsNoop())
	assert.True(t, New("").IsNoop())
	assert.False(t, New("x").IsNoop())
	assert.Equal(t, `Filter(substring:"x",noop:false)`, New("x").String())
	assert.True(t, NewNoop().Match(nil))
}

func TestConcurrentMatch(t *testing.T) {
	f := New("needle")
	done := make(chan bool)

	for i := 0; i < 8; i++ {
		go func() {
			ok := true
			for j := 0; j < 1000; j++ {
				ok = ok && f.Match([]byte("hay needle hay")) && !f.Match([]byte("hay"))
			}
			done <- ok
		}()
	}
	for i := 0; i < 8; i++ {
		assert.True(t, <-done)
	}
}
