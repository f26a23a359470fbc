// Package milvus owns the process-wide Milvus connection. The connection
// pool is shared across requests; everything else in the indexing pipeline
// is request-scoped.
package milvus

import (
	"context"
	"fmt"
	"sync"

	"github.com/milvus-io/milvus-sdk-go/v2/client"

	"docindex/internal/config"
)

var (
	instance *MilvusClient
	once     sync.Once
	initErr  error
)

// MilvusClient wraps the raw SDK client together with its configuration.
type MilvusClient struct {
	Client client.Client
	Config *config.StoreConfig
}

// GetClient connects to Milvus once per process and returns the shared
// client.
func GetClient(ctx context.Context, cfg *config.StoreConfig) (*MilvusClient, error) {
	once.Do(func() {
		c, err := client.NewClient(ctx, client.Config{
			Address:  cfg.Address,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			initErr = fmt.Errorf("cannot connect to Milvus at %s: %w", cfg.Address, err)
			return
		}
		instance = &MilvusClient{Client: c, Config: cfg}
	})
	return instance, initErr
}

// Close shuts down the shared connection.
func (c *MilvusClient) Close() {
	if c.Client != nil {
		c.Client.Close()
	}
}

// HealthCheck verifies connectivity and authentication.
func (c *MilvusClient) HealthCheck(ctx context.Context) error {
	if c.Client == nil {
		return fmt.Errorf("milvus client is not initialized")
	}
	if _, err := c.Client.ListCollections(ctx); err != nil {
		return fmt.Errorf("milvus health check failed: %w", err)
	}
	return nil
}
