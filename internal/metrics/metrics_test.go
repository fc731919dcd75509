package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveStageDuration(StageBuild, 150*time.Millisecond)
	pr.IncStageResult(StageBuild, ResultSuccess)
	pr.ObserveBuildDuration(2 * time.Second)
	pr.IncBuildOutcome(ResultFailed)
	pr.IncPackagesBuilt("rm1")
	pr.IncPackagesBuilt("rm1")
	pr.IncFetchResult(FetchDownloaded)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	got := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				got[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, got["cruxpkg_stage_results_total"])
	assert.Equal(t, 1.0, got["cruxpkg_build_outcomes_total"])
	assert.Equal(t, 2.0, got["cruxpkg_packages_built_total"])
	assert.Equal(t, 1.0, got["cruxpkg_fetch_results_total"])
}

func TestWriteTextfile(t *testing.T) {
	reg := prom.NewRegistry()
	NewPrometheusRecorder(reg).IncFetchResult(FetchMissing)

	path := filepath.Join(t.TempDir(), "out", "cruxpkg.prom")
	require.NoError(t, WriteTextfile(reg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `cruxpkg_fetch_results_total{result="missing"} 1`), string(data))
}

func TestEnsure(t *testing.T) {
	assert.Equal(t, NoopRecorder{}, Ensure(nil))

	pr := NewPrometheusRecorder(nil)
	assert.Same(t, pr, Ensure(pr))
}
