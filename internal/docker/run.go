package docker

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aatumaykin/cronbot/internal/logger"
)

const MaxOutputSize = 1 * 1024 * 1024

// RunTask runs a one-shot container to completion and captures its output.
// The image must already be present; callers pull it once at startup. The
// container is created, attached before start so no early output is lost,
// started, drained until the stream closes, then removed.
func RunTask(ctx context.Context, client DockerClientInterface, log *logger.Logger, cfg RunConfig, timeout time.Duration) (*RunResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	id, err := client.CreateContainer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer removeContainer(client, log, id, cfg.StopTimeout)

	hijack, err := client.AttachContainer(ctx, id)
	if err != nil {
		return nil, err
	}
	defer hijack.Conn.Close()

	started := time.Now()
	if err := client.StartContainer(ctx, id); err != nil {
		return nil, err
	}

	type streamResult struct {
		stdout []byte
		stderr []byte
		err    error
	}
	streamChan := make(chan streamResult, 1)

	go func() {
		stdout, stderr, err := demuxStream(hijack.Reader, MaxOutputSize)
		streamChan <- streamResult{stdout: stdout, stderr: stderr, err: err}
	}()

	var stream streamResult
	select {
	case stream = <-streamChan:
		if stream.err != nil {
			return nil, &DockerError{Op: "run", Err: stream.err, Message: fmt.Sprintf("failed to read container output %s", id)}
		}
	case <-ctx.Done():
		// Unblock the reader goroutine before returning.
		hijack.Conn.Close()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, &DockerError{Op: "run", Err: ctx.Err(), Message: fmt.Sprintf("task timeout after %v", timeout)}
		}
		return nil, &DockerError{Op: "run", Err: ctx.Err(), Message: "task cancelled"}
	}

	inspect, err := client.InspectContainer(context.Background(), id)
	if err != nil {
		return nil, &DockerError{Op: "inspect", Err: err, Message: fmt.Sprintf("failed to inspect container %s", id)}
	}

	return &RunResult{
		ExitCode: inspect.State.ExitCode,
		Stdout:   string(stream.stdout),
		Stderr:   string(stream.stderr),
		Duration: time.Since(started),
	}, nil
}

// StartService runs a long-lived plugin container and returns its id. The
// caller owns the container and stops it through StopService.
func StartService(ctx context.Context, client DockerClientInterface, cfg RunConfig) (string, error) {
	if err := client.PullImage(ctx, cfg); err != nil {
		return "", err
	}

	id, err := client.CreateContainer(ctx, cfg)
	if err != nil {
		return "", err
	}

	if err := client.StartContainer(ctx, id); err != nil {
		client.RemoveContainer(ctx, id)
		return "", err
	}

	return id, nil
}

// StopService stops and removes a service container started by StartService.
func StopService(ctx context.Context, client DockerClientInterface, id string, stopTimeout time.Duration) error {
	timeout := int(stopTimeout.Seconds())
	if timeout == 0 {
		timeout = 5
	}

	stopErr := client.StopContainer(ctx, id, &timeout)
	if err := client.RemoveContainer(ctx, id); err != nil && stopErr == nil {
		stopErr = err
	}
	return stopErr
}

// ServiceRunning reports whether a service container is still up.
func ServiceRunning(ctx context.Context, client DockerClientInterface, id string) (bool, error) {
	inspect, err := client.InspectContainer(ctx, id)
	if err != nil {
		return false, err
	}
	return inspect.State.Running, nil
}

func removeContainer(client DockerClientInterface, log *logger.Logger, id string, stopTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	timeout := int(stopTimeout.Seconds())
	if timeout == 0 {
		timeout = 5
	}
	if err := client.StopContainer(ctx, id, &timeout); err != nil {
		log.Warn("Failed to stop container", logger.Field{Key: "container_id", Value: id}, logger.Field{Key: "error", Value: err})
	}
	if err := client.RemoveContainer(ctx, id); err != nil {
		log.Warn("Failed to remove container", logger.Field{Key: "container_id", Value: id}, logger.Field{Key: "error", Value: err})
	}
}

// demuxStream splits a multiplexed attach stream into stdout and stderr.
// Each frame carries an 8-byte header: stream type, three zero bytes, and a
// big-endian payload length. Output is capped at limit bytes per stream.
func demuxStream(r io.Reader, limit int) (stdout, stderr []byte, err error) {
	header := make([]byte, 8)
	truncated := false

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				return finishDemux(stdout, stderr, truncated)
			}
			return stdout, stderr, err
		}

		size := int(binary.BigEndian.Uint32(header[4:8]))
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
				return finishDemux(stdout, stderr, truncated)
			}
			return stdout, stderr, err
		}

		var clipped bool
		switch header[0] {
		case 2:
			stderr, clipped = appendCapped(stderr, payload, limit)
		default:
			stdout, clipped = appendCapped(stdout, payload, limit)
		}
		if clipped {
			truncated = true
		}
	}
}

func finishDemux(stdout, stderr []byte, truncated bool) ([]byte, []byte, error) {
	if truncated {
		stdout = append(stdout, []byte("\n[TRUNCATED]")...)
	}
	return stdout, stderr, nil
}

func appendCapped(dst, payload []byte, limit int) ([]byte, bool) {
	room := limit - len(dst)
	if room <= 0 {
		return dst, true
	}
	if len(payload) > room {
		return append(dst, payload[:room]...), true
	}
	return append(dst, payload...), false
}
