package metrics

import "time"

// Pipeline stages reported by the builder.
const (
	StageSources = "sources"
	StagePrepare = "prepare"
	StageBuild   = "build"
	StageStrip   = "strip"
	StagePackage = "package"
	StageArchive = "archive"
)

// Outcome of a stage or of a whole build.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Outcome of looking up a package on the local store or a remote mirror.
type FetchLabel string

const (
	FetchLocal      FetchLabel = "local"
	FetchProbed     FetchLabel = "probed"
	FetchDownloaded FetchLabel = "downloaded"
	FetchMissing    FetchLabel = "missing"
)

// Observability hooks for builds and repository reconciliation.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(result ResultLabel)
	IncPackagesBuilt(arch string)
	IncFetchResult(result FetchLabel)
}

// Recorder that discards everything.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(ResultLabel)                {}
func (NoopRecorder) IncPackagesBuilt(string)                    {}
func (NoopRecorder) IncFetchResult(FetchLabel)                  {}

// Returns rec, or a [NoopRecorder] if rec is nil.
func Ensure(rec Recorder) Recorder {
	if rec == nil {
		return NoopRecorder{}
	}
	return rec
}
