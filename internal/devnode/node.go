// Package devnode runs a disposable anvil node in Docker for rehearsing provisioning runs.
package devnode

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/lgns/provisioner/configs"
	"github.com/lgns/provisioner/internal/logger"
)

const (
	anvilPort    = "8545/tcp"
	readyTimeout = 30 * time.Second
	readyPoll    = 500 * time.Millisecond
)

type (
	Node struct {
		cli    *client.Client
		cfg    configs.DevNode
		logger *slog.Logger
	}

	Status struct {
		Exists  bool
		Running bool
		RPCURL  string
	}
)

// New creates a Docker client for the node described by cfg.
func New(cfg configs.DevNode) (*Node, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}

	return &Node{
		cli:    cli,
		cfg:    cfg,
		logger: logger.Named("devnode").With("container", cfg.ContainerName),
	}, nil
}

func (n *Node) Close() error {
	return n.cli.Close()
}

func (n *Node) RPCURL() string {
	return RPCURL(n.cfg)
}

// Start pulls the image when missing, replaces a stopped container and waits until the
// node answers with the configured chain id.
func (n *Node) Start(ctx context.Context) error {
	status, err := n.Status(ctx)
	if err != nil {
		return err
	}
	if status.Running {
		n.logger.Info("dev node already running")
		return nil
	}
	if status.Exists {
		if err := n.remove(ctx); err != nil {
			return err
		}
	}

	exists, err := n.imageExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if err := n.pullImage(ctx); err != nil {
			return err
		}
	}

	config, hostConfig := containerConfig(n.cfg)
	resp, err := n.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, n.cfg.ContainerName)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	if err := n.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	n.logger.With("rpc_url", n.RPCURL()).Info("dev node started, waiting for rpc")

	return n.waitReady(ctx)
}

// Stop stops and removes the container. A missing container is not an error.
func (n *Node) Stop(ctx context.Context) error {
	status, err := n.Status(ctx)
	if err != nil {
		return err
	}
	if !status.Exists {
		n.logger.Info("dev node is not running")
		return nil
	}

	if status.Running {
		if err := n.cli.ContainerStop(ctx, n.cfg.ContainerName, container.StopOptions{}); err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("failed to stop container: %w", err)
		}
	}
	if err := n.remove(ctx); err != nil {
		return err
	}

	n.logger.Info("dev node stopped")
	return nil
}

func (n *Node) Status(ctx context.Context) (Status, error) {
	status := Status{RPCURL: n.RPCURL()}

	info, err := n.cli.ContainerInspect(ctx, n.cfg.ContainerName)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return status, nil
		}
		return status, fmt.Errorf("failed to inspect container: %w", err)
	}

	status.Exists = true
	status.Running = info.State != nil && info.State.Running
	return status, nil
}

func (n *Node) remove(ctx context.Context) error {
	err := n.cli.ContainerRemove(ctx, n.cfg.ContainerName, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

func (n *Node) imageExists(ctx context.Context) (bool, error) {
	_, err := n.cli.ImageInspect(ctx, n.cfg.Image)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (n *Node) pullImage(ctx context.Context) error {
	n.logger.With("image", n.cfg.Image).Info("pulling docker image")

	resp, err := n.cli.ImagePull(ctx, n.cfg.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer resp.Close()

	scanner := bufio.NewScanner(resp)
	var pullError error
	for scanner.Scan() {
		var msg struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &msg); err == nil && msg.Error != "" {
			pullError = fmt.Errorf("pull failed: %s", msg.Error)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading pull output: %w", err)
	}

	return pullError
}

func (n *Node) waitReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	ticker := time.NewTicker(readyPoll)
	defer ticker.Stop()

	var lastErr error
	for {
		err := n.checkChainID(ctx)
		if err == nil {
			n.logger.Info("dev node ready")
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("dev node did not become ready: %w", lastErr)
		case <-ticker.C:
		}
	}
}

func (n *Node) checkChainID(ctx context.Context) error {
	rpc, err := ethclient.DialContext(ctx, n.RPCURL())
	if err != nil {
		return err
	}
	defer rpc.Close()

	id, err := rpc.ChainID(ctx)
	if err != nil {
		return err
	}
	if id.Uint64() != n.cfg.ChainID {
		return fmt.Errorf("dev node reports chain id %d, expected %d", id.Uint64(), n.cfg.ChainID)
	}
	return nil
}

// RPCURL is the host endpoint of the node described by cfg.
func RPCURL(cfg configs.DevNode) string {
	return "http://127.0.0.1:" + strconv.Itoa(cfg.Port)
}

func containerConfig(cfg configs.DevNode) (*container.Config, *container.HostConfig) {
	port := nat.Port(anvilPort)

	config := &container.Config{
		Image:        cfg.Image,
		Entrypoint:   []string{"anvil"},
		Cmd:          []string{"--host", "0.0.0.0", "--port", port.Port(), "--chain-id", strconv.FormatUint(cfg.ChainID, 10)},
		ExposedPorts: nat.PortSet{port: struct{}{}},
		Labels:       map[string]string{"org.lgns.provisioner": "devnode"},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: strconv.Itoa(cfg.Port)}},
		},
	}

	return config, hostConfig
}
