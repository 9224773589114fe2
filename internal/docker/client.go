package docker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/moby/moby/api/types/container"
	dockerclient "github.com/moby/moby/client"
)

// DockerClientInterface is the slice of the Docker API the plugin runner
// needs. Satisfied by DockerClient and by test fakes.
type DockerClientInterface interface {
	PullImage(ctx context.Context, cfg RunConfig) error
	CreateContainer(ctx context.Context, cfg RunConfig) (string, error)
	StartContainer(ctx context.Context, id string) error
	StopContainer(ctx context.Context, id string, timeout *int) error
	RemoveContainer(ctx context.Context, id string) error
	AttachContainer(ctx context.Context, id string) (dockerclient.HijackedResponse, error)
	InspectContainer(ctx context.Context, id string) (container.InspectResponse, error)
	Close() error
}

// Resource limits applied when the plugin definition sets none.
const (
	defaultMemoryLimit = 128 * 1024 * 1024
	defaultCPULimit    = 0.5
	defaultPidsLimit   = int64(50)
)

type DockerClient struct {
	client *dockerclient.Client
}

func NewDockerClient() (*DockerClient, error) {
	cli, err := dockerclient.New(dockerclient.WithAPIVersionNegotiation(), dockerclient.FromEnv)
	if err != nil {
		return nil, &DockerError{Op: "connect", Err: err, Message: "failed to connect to Docker daemon"}
	}

	if _, err := cli.Ping(context.Background(), dockerclient.PingOptions{NegotiateAPIVersion: true}); err != nil {
		return nil, &DockerError{Op: "ping", Err: err, Message: "Docker daemon not available"}
	}

	return &DockerClient{client: cli}, nil
}

func (c *DockerClient) Close() error {
	return c.client.Close()
}

// PullImage fetches cfg.Image according to cfg.PullPolicy. Under
// "if-not-present" a failed pull is tolerated and the local image is used.
func (c *DockerClient) PullImage(ctx context.Context, cfg RunConfig) error {
	if cfg.PullPolicy == "never" {
		return nil
	}

	imageRef := cfg.Image
	if !strings.Contains(imageRef, ":") {
		imageRef += ":latest"
	}

	if err := c.pull(ctx, imageRef); err != nil {
		if cfg.PullPolicy == "if-not-present" {
			return nil
		}
		return &DockerError{Op: "pull", Err: err, Message: fmt.Sprintf("failed to pull image %s", imageRef)}
	}

	return nil
}

func (c *DockerClient) pull(ctx context.Context, imageRef string) error {
	resp, err := c.client.ImagePull(ctx, imageRef, dockerclient.ImagePullOptions{})
	if err != nil {
		return err
	}
	defer resp.Close()

	return resp.Wait(ctx)
}

func (c *DockerClient) CreateContainer(ctx context.Context, cfg RunConfig) (string, error) {
	memoryLimit := parseMemory(cfg.MemoryLimit)
	if memoryLimit == 0 {
		memoryLimit = defaultMemoryLimit
	}

	cpuLimit := cfg.CPULimit
	if cpuLimit == 0 {
		cpuLimit = defaultCPULimit
	}

	pidsLimit := cfg.PidsLimit
	if pidsLimit == 0 {
		pidsLimit = defaultPidsLimit
	}

	securityOpt := cfg.SecurityOpt
	if len(securityOpt) == 0 {
		securityOpt = []string{"no-new-privileges"}
	}

	result, err := c.client.ContainerCreate(ctx, dockerclient.ContainerCreateOptions{
		Image: cfg.Image,
		Config: &container.Config{
			Image: cfg.Image,
			Cmd:   cfg.Cmd,
			Env:   cfg.Env,
		},
		HostConfig: &container.HostConfig{
			Resources: container.Resources{
				Memory:    memoryLimit,
				NanoCPUs:  int64(cpuLimit * 1e9),
				PidsLimit: &pidsLimit,
			},
			SecurityOpt:    securityOpt,
			ReadonlyRootfs: cfg.ReadonlyRootfs,
			Tmpfs:          map[string]string{"/tmp": "rw,size=50m"},
		},
	})
	if err != nil {
		return "", &DockerError{Op: "create", Err: err, Message: "failed to create container"}
	}

	return result.ID, nil
}

func (c *DockerClient) StartContainer(ctx context.Context, id string) error {
	if _, err := c.client.ContainerStart(ctx, id, dockerclient.ContainerStartOptions{}); err != nil {
		return &DockerError{Op: "start", Err: err, Message: fmt.Sprintf("failed to start container %s", id)}
	}
	return nil
}

func (c *DockerClient) StopContainer(ctx context.Context, id string, timeout *int) error {
	if _, err := c.client.ContainerStop(ctx, id, dockerclient.ContainerStopOptions{Timeout: timeout}); err != nil {
		return &DockerError{Op: "stop", Err: err, Message: fmt.Sprintf("failed to stop container %s", id)}
	}
	return nil
}

func (c *DockerClient) RemoveContainer(ctx context.Context, id string) error {
	if _, err := c.client.ContainerRemove(ctx, id, dockerclient.ContainerRemoveOptions{Force: true}); err != nil {
		return &DockerError{Op: "remove", Err: err, Message: fmt.Sprintf("failed to remove container %s", id)}
	}
	return nil
}

func (c *DockerClient) AttachContainer(ctx context.Context, id string) (dockerclient.HijackedResponse, error) {
	result, err := c.client.ContainerAttach(ctx, id, dockerclient.ContainerAttachOptions{
		Stream: true,
		Stdout: true,
		Stderr: true,
	})
	if err != nil {
		return dockerclient.HijackedResponse{}, &DockerError{Op: "attach", Err: err, Message: fmt.Sprintf("failed to attach to container %s", id)}
	}
	return result.HijackedResponse, nil
}

func (c *DockerClient) InspectContainer(ctx context.Context, id string) (container.InspectResponse, error) {
	result, err := c.client.ContainerInspect(ctx, id, dockerclient.ContainerInspectOptions{})
	if err != nil {
		return container.InspectResponse{}, err
	}
	return result.Container, nil
}

// parseMemory converts "512m" style limits to bytes. Unparseable or
// negative values yield 0 so the caller falls back to the default.
func parseMemory(s string) int64 {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0
	}

	multiplier := int64(1)
	switch {
	case strings.HasSuffix(s, "g"):
		multiplier = 1 << 30
		s = strings.TrimSuffix(s, "g")
	case strings.HasSuffix(s, "m"):
		multiplier = 1 << 20
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		multiplier = 1 << 10
		s = strings.TrimSuffix(s, "k")
	}

	val, err := strconv.ParseInt(s, 10, 64)
	if err != nil || val < 0 {
		return 0
	}

	return val * multiplier
}
