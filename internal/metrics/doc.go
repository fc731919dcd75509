// Package metrics records build and repository metrics.
//
// Components receive a [Recorder] and default to [NoopRecorder], so metrics
// cost nothing unless requested. A [PrometheusRecorder] registers its
// collectors on a Prometheus registry; since builds are short-lived
// processes rather than servers, the registry is written once at exit in the
// node exporter textfile format with [WriteTextfile].
//
// Example usage:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//
//	start := time.Now()
//	err := runStage()
//	rec.ObserveStageDuration(metrics.StageBuild, time.Since(start))
//
//	if err := metrics.WriteTextfile(reg, "/var/lib/node_exporter/cruxpkg.prom"); err != nil {
//	    return err
//	}
package metrics
