package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoriesAreScoped(t *testing.T) {
	for name, dir := range map[string]string{
		"work":    Work(),
		"repo":    Repo(),
		"envfile": EnvFile(),
	} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, filepath.IsAbs(dir), "%s is not absolute", dir)
			assert.Contains(t, dir, programName)
		})
	}
}

func TestWorkAndRepoDiffer(t *testing.T) {
	assert.NotEqual(t, Work(), Repo())
}
