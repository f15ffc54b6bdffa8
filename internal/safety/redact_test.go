package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedact(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"what the fuck", "what the f★★★"},
		{"Shit happens", "S★★★ happens"},
		{"you ASSHOLE!", "you A★★★★★★!"},
		{"bitch, please", "b★★★★, please"},
		{"shitake mushrooms", "shitake mushrooms"},
		{"nothing to see", "nothing to see"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.in))
		})
	}
}
