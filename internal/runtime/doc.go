// Package runtime runs build scripts inside containers backed by containerd.
//
// A [Runtime] holds the daemon address and the namespace that scopes every
// containerd object it creates. Each call to [Runtime.RunScript] opens its own
// client connection, resolves the image for the requested platform (pulling
// and unpacking it on first use), and creates a throwaway container with a
// fresh snapshot. Host directories are bind-mounted into the container, and
// the script runs under bash with the requested variables declared ahead of
// it. The container, its snapshot and the connection are released once the
// script exits, so nothing is shared between invocations.
//
// Standard output and standard error are merged into a single line stream
// that is produced while the script runs. A non-zero exit status surfaces as
// a [bash.ScriptError] once the stream is exhausted.
//
// Example usage:
//
//	rt := runtime.New(runtime.Config{
//	    Address:   "/run/containerd/containerd.sock",
//	    Namespace: "cruxpkg",
//	})
//	if err := rt.Check(ctx); err != nil {
//	    return err
//	}
//
//	logs, err := rt.RunScript(ctx, runtime.Script{
//	    Image:  "ghcr.io/toltec-dev/base:v2.1",
//	    Mounts: []runtime.Mount{{Source: "/work/rm1/src", Target: "/src"}},
//	    Body:   "cd /src && make",
//	})
//	if err != nil {
//	    return err
//	}
//	for line := range logs.Lines() {
//	    fmt.Println(line)
//	}
//	if err := logs.Err(); err != nil {
//	    return err
//	}
package runtime
