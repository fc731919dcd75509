package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/defaults"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// OCI runtime shim for running containers.
	ociRuntime = "io.containerd.runc.v2"

	// Time allowed for establishing a connection to the daemon.
	dialTimeout = 10 * time.Second
)

// Connection settings for the containerd daemon.
type Config struct {
	Address     string       // Path of the containerd socket.
	Namespace   string       // Namespace scoping images, containers and snapshots.
	Snapshotter string       // Snapshotter for container filesystems, defaults to the platform default.
	Logger      *slog.Logger // Destination of debug messages, defaults to slog.Default.
}

// Runs scripts in containers. A Runtime holds no connection; each script
// invocation dials the daemon on its own.
type Runtime struct {
	address     string
	namespace   string
	snapshotter string
	logger      *slog.Logger
}

// Creates a runtime for the daemon described by cfg.
func New(cfg Config) *Runtime {
	snapshotter := cfg.Snapshotter
	if snapshotter == "" {
		snapshotter = defaults.DefaultSnapshotter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		address:     cfg.Address,
		namespace:   cfg.Namespace,
		snapshotter: snapshotter,
		logger:      logger,
	}
}

// Verifies that the daemon is reachable and serving requests.
func (rt *Runtime) Check(ctx context.Context) error {
	client, err := rt.dial()
	if err != nil {
		return err
	}
	defer client.Close()

	serving, err := client.IsServing(ctx)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, rt.address, err)
	}
	if !serving {
		return fmt.Errorf("%w: %s", ErrUnavailable, rt.address)
	}
	return nil
}

// Opens a client connection scoped to the runtime's namespace.
func (rt *Runtime) dial() (*containerd.Client, error) {
	client, err := containerd.New(rt.address,
		containerd.WithDefaultNamespace(rt.namespace),
		containerd.WithTimeout(dialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	return client, nil
}

// Returns the image ref for platform, unpacked into the runtime's snapshotter.
//
// The image is looked up in the namespace first and pulled from its registry
// when absent. An image that is present but was never unpacked for this
// snapshotter is unpacked in place.
func (rt *Runtime) ensureImage(ctx context.Context, client *containerd.Client, ref string, platform ocispec.Platform) (containerd.Image, error) {
	matcher := platforms.Only(platform)

	stored, err := client.ImageService().Get(ctx, ref)
	if errdefs.IsNotFound(err) {
		rt.logger.Info("pulling image", "image", ref, "platform", platforms.Format(platform))
		image, err := client.Pull(ctx, ref,
			containerd.WithPlatformMatcher(matcher),
			containerd.WithPullUnpack,
			containerd.WithPullSnapshotter(rt.snapshotter),
		)
		if err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrImage, ref, err)
		}
		return image, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrImage, ref, err)
	}

	image := containerd.NewImageWithPlatform(client, stored, matcher)

	unpacked, err := image.IsUnpacked(ctx, rt.snapshotter)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrImage, ref, err)
	}
	if !unpacked {
		rt.logger.Debug("unpacking image", "image", ref, "snapshotter", rt.snapshotter)
		if err := image.Unpack(ctx, rt.snapshotter); err != nil {
			return nil, fmt.Errorf("%w %s: %w", ErrImage, ref, err)
		}
	}
	return image, nil
}

// Returns the requested platform, or the host platform when p is nil.
func resolvePlatform(p *ocispec.Platform) ocispec.Platform {
	if p == nil {
		return platforms.DefaultSpec()
	}
	return platforms.Normalize(*p)
}
