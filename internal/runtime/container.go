package runtime

import (
	"context"
	"log/slog"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Prefix of the IDs of containers created by the runtime.
const containerPrefix = "cruxpkg-"

// Host directory bind-mounted into a container.
type Mount struct {
	Source string // Absolute path on the host.
	Target string // Absolute path inside the container.
}

// Returns a fresh container ID.
func newContainerID() string {
	return containerPrefix + uuid.NewString()
}

// Converts mounts to read-write recursive bind mounts.
func bindMounts(mounts []Mount) []specs.Mount {
	out := make([]specs.Mount, 0, len(mounts))
	for _, m := range mounts {
		out = append(out, specs.Mount{
			Destination: m.Target,
			Type:        "bind",
			Source:      m.Source,
			Options:     []string{"rbind", "rw"},
		})
	}
	return out
}

// Creates a container running args on a fresh snapshot of image.
//
// The container shares the host network so build scripts can download
// dependencies.
func (rt *Runtime) createContainer(ctx context.Context, client *containerd.Client, id string, image containerd.Image, platform ocispec.Platform, mounts []Mount, args ...string) (containerd.Container, error) {
	return client.NewContainer(ctx, id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(rt.snapshotter),
		containerd.WithNewSnapshot(id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(platforms.Format(platform)),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithMounts(bindMounts(mounts)),
			oci.WithProcessArgs(args...),
		),
	)
}

// Removes the container and its snapshot, killing its task if still running.
// Failures are logged since the script outcome is already known.
func (rt *Runtime) destroy(ctx context.Context, ctr containerd.Container) {
	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		if _, err := task.Delete(ctx, containerd.WithProcessKill); err != nil && !errdefs.IsNotFound(err) {
			rt.logger.Warn("failed to delete task", "id", ctr.ID(), "error", err)
		}
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		rt.logger.Warn("failed to delete container", "id", ctr.ID(), "error", err)
		return
	}
	rt.logger.Debug("container removed", slog.String("id", ctr.ID()))
}
