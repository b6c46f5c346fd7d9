// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultMySQLImage matches the production database major version.
	DefaultMySQLImage = "mysql:8.0"

	DefaultMySQLPort     = "3306"
	DefaultMySQLDatabase = "reelcast"
	DefaultMySQLPassword = "reelcast-test"
)

// MySQLContainer is a running MySQL server.
type MySQLContainer struct {
	testcontainers.Container
	DSN string
}

// MySQLOption configures the MySQL container.
type MySQLOption func(*mysqlConfig)

type mysqlConfig struct {
	image        string
	startTimeout time.Duration
}

// WithMySQLImage sets a custom MySQL image.
func WithMySQLImage(image string) MySQLOption {
	return func(c *mysqlConfig) {
		c.image = image
	}
}

// WithStartTimeout sets how long to wait for the server to accept connections.
func WithStartTimeout(timeout time.Duration) MySQLOption {
	return func(c *mysqlConfig) {
		c.startTimeout = timeout
	}
}

// NewMySQLContainer starts MySQL and returns a go-sql-driver DSN for it.
func NewMySQLContainer(ctx context.Context, opts ...MySQLOption) (*MySQLContainer, error) {
	cfg := &mysqlConfig{
		image:        DefaultMySQLImage,
		startTimeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{DefaultMySQLPort + "/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": DefaultMySQLPassword,
			"MYSQL_DATABASE":      DefaultMySQLDatabase,
			"TZ":                  "UTC",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort(DefaultMySQLPort+"/tcp"),
			wait.ForLog("port: 3306  MySQL Community Server"),
		).WithStartupTimeout(cfg.startTimeout),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create mysql container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, DefaultMySQLPort+"/tcp")
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get mapped port: %w", err)
	}

	return &MySQLContainer{
		Container: container,
		DSN: fmt.Sprintf("root:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
			DefaultMySQLPassword, host, port.Port(), DefaultMySQLDatabase),
	}, nil
}
