package runtime

import (
	"context"
	"fmt"
	"io"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/cruciblehq/cruxpkg/internal/bash"
)

// A script to run inside a container.
type Script struct {
	Image     string            // Fully qualified image reference.
	Platform  *ocispec.Platform // Image platform, nil for the host platform.
	Mounts    []Mount           // Host directories visible to the script.
	Variables bash.Variables    // Variables declared before the body.
	Body      string            // Script body.
}

// Runs s in a new container and returns its output stream.
//
// The call returns once the script has started. Standard output and standard
// error are merged into the stream; a non-zero exit surfaces as a
// [*bash.ScriptError] from [bash.Logs.Err]. The container and the daemon
// connection are released when the script ends, even if ctx is cancelled.
func (rt *Runtime) RunScript(ctx context.Context, s Script) (*bash.Logs, error) {
	client, err := rt.dial()
	if err != nil {
		return nil, err
	}

	platform := resolvePlatform(s.Platform)
	image, err := rt.ensureImage(ctx, client, s.Image, platform)
	if err != nil {
		client.Close()
		return nil, err
	}

	id := newContainerID()
	args := []string{"bash", "--noprofile", "--norc", "-c", bash.Script(s.Variables, s.Body)}

	ctr, err := rt.createContainer(ctx, client, id, image, platform, s.Mounts, args...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	rt.logger.Debug("container created", "id", id, "image", s.Image, "platform", platforms.Format(platform))

	cleanupCtx := context.WithoutCancel(ctx)
	release := func() {
		rt.destroy(cleanupCtx, ctr)
		client.Close()
	}

	pr, pw := io.Pipe()
	wait, err := startTask(ctx, ctr, pw)
	if err != nil {
		pw.Close()
		release()
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	done := make(chan error, 1)
	go func() {
		err := wait()
		release()
		pw.Close()
		done <- err
	}()

	return bash.NewLogs(pr, func() error { return <-done }), nil
}

// Starts the container's task with both output streams sent to out, and
// returns a function blocking until the task exits.
//
// The wait function deletes the task before returning, which flushes any
// output still held by the shim.
func startTask(ctx context.Context, ctr containerd.Container, out io.Writer) (func() error, error) {
	task, err := ctr.NewTask(ctx, cio.NewCreator(cio.WithStreams(nil, out, out)))
	if err != nil {
		return nil, err
	}

	statusC, err := task.Wait(ctx)
	if err != nil {
		task.Delete(ctx)
		return nil, err
	}

	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return nil, err
	}

	return func() error {
		status := <-statusC
		task.Delete(context.WithoutCancel(ctx))

		code, _, err := status.Result()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRuntime, err)
		}
		if code != 0 {
			return &bash.ScriptError{ExitCode: int(code)}
		}
		return nil
	}, nil
}
