package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionStringLocal(t *testing.T) {
	version, gitCommit = "", ""
	assert.True(t, IsLocal())
	assert.Equal(t, "(local)", VersionString())
	assert.Equal(t, "(undefined)", Version())
	assert.Equal(t, "(undefined)", GitCommit())
}

func TestVersionStringRelease(t *testing.T) {
	t.Cleanup(func() { version, gitCommit = "", "" })
	version, gitCommit = "V1.2.3", "abc123"

	assert.False(t, IsLocal())
	assert.Equal(t, "1.2.3", Version())
	assert.Contains(t, VersionString(), "1.2.3 abc123 [")
}

func TestModes(t *testing.T) {
	t.Cleanup(func() {
		SetQuiet(false)
		SetDebug(false)
		SetVerbose(false)
	})

	SetDebug(true)
	assert.True(t, IsDebug())
	assert.False(t, IsQuiet())

	SetQuiet(true)
	SetVerbose(true)
	assert.True(t, IsQuiet())
	assert.True(t, IsVerbose())
}
