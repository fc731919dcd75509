package build

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsk(t *testing.T) {
	tests := []struct {
		input string
		want  ConflictAction
	}{
		{"r\n", ConflictRemove},
		{"keep\n", ConflictKeep},
		{"c\n", ConflictCancel},
		{"\n", ConflictCancel},
		{"", ConflictCancel},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			action, err := Ask(strings.NewReader(tt.input), &out)("work/app", "app")
			require.NoError(t, err)
			assert.Equal(t, tt.want, action)
			assert.Contains(t, out.String(), "The build directory 'work/app' for recipe 'app' already exists.")
		})
	}
}

func TestParseConflictAction(t *testing.T) {
	for _, action := range []ConflictAction{ConflictCancel, ConflictRemove, ConflictKeep} {
		parsed, err := ParseConflictAction(action.String())
		require.NoError(t, err)
		assert.Equal(t, action, parsed)
	}

	_, err := ParseConflictAction("ask")
	assert.Error(t, err)
}
