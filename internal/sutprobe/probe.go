// Package sutprobe reads head block state from the SUT's JSON-RPC endpoint.
package sutprobe

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/GoSim-25-26J-441/optibench/pkg/logger"
	"github.com/GoSim-25-26J-441/optibench/pkg/models"
)

// ChainReader is the subset of ethclient.Client the probe needs
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// Client probes one SUT node
type Client struct {
	reader ChainReader
	closer func()
	url    string
}

// Dial connects to the node at url
func Dial(ctx context.Context, url string) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SUT RPC %s: %w", url, err)
	}
	return &Client{reader: ec, closer: ec.Close, url: url}, nil
}

// NewClient creates a probe over an existing reader
func NewClient(reader ChainReader) *Client {
	return &Client{reader: reader}
}

// Close releases the RPC connection
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// Observe reads the head block's gas limit and the time since its parent
func (c *Client) Observe(ctx context.Context) (*models.Observation, error) {
	head, err := c.reader.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get head block header: %w", err)
	}
	obs := &models.Observation{
		HeadBlock: head.Number.Uint64(),
		GasLimit:  head.GasLimit,
	}
	if head.Number.Sign() == 0 {
		return obs, nil
	}

	parent, err := c.reader.HeaderByNumber(ctx, new(big.Int).Sub(head.Number, big.NewInt(1)))
	if err != nil {
		return nil, fmt.Errorf("failed to get parent of block %d: %w", obs.HeadBlock, err)
	}
	if head.Time >= parent.Time {
		obs.BlockTime = time.Duration(head.Time-parent.Time) * time.Second
	}
	return obs, nil
}

// WaitReady polls the node until it answers with a block number or timeout
// elapses. A zero timeout polls until ctx is done.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 5 * time.Second
	exp.MaxElapsedTime = timeout
	back := backoff.WithContext(exp, ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		number, err := c.reader.BlockNumber(ctx)
		if err != nil {
			logger.Debug("SUT RPC not ready", "url", c.url, "attempt", attempt, "error", err)
			return err
		}
		logger.Info("SUT RPC ready", "url", c.url, "block", number)
		return nil
	}, back)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (last error: %v)", ctxErr, err)
		}
		return fmt.Errorf("SUT RPC not ready after %d attempts: %w", attempt, err)
	}
	return nil
}
