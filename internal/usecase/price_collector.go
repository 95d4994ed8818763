package usecase

import (
	"context"
	"math"
	"sync/atomic"

	drepo "dogebot/internal/domain/repository"
	"dogebot/pkg/logger"
)

// PriceCollector consumes the live ticker stream and retains only the latest
// price, so status snapshots between candle polls show fresh numbers.
type PriceCollector struct {
	stream  drepo.Ticker
	metrics drepo.Metrics
	log     *logger.Logger

	last atomic.Uint64 // float64 bits, 0 = no price yet
}

func NewPriceCollector(stream drepo.Ticker, metrics drepo.Metrics, log *logger.Logger) *PriceCollector {
	return &PriceCollector{stream: stream, metrics: metrics, log: log}
}

// Start connects, subscribes, and consumes in the background until ctx ends.
func (c *PriceCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	prices, errs := c.stream.Read(ctx)
	go c.consume(ctx, prices, errs)
	return nil
}

func (c *PriceCollector) consume(ctx context.Context, prices <-chan float64, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			if err != nil {
				if c.metrics != nil {
					c.metrics.RecordError("stream")
				}
				c.log.Warn("ticker stream error, reconnecting", logger.Error(err))
				if rerr := c.stream.Reconnect(ctx); rerr != nil {
					c.log.Warn("ticker reconnect failed", logger.Error(rerr))
					return
				}
				prices, errs = c.stream.Read(ctx)
			}
		case p, ok := <-prices:
			if !ok {
				continue
			}
			c.last.Store(math.Float64bits(p))
			if c.metrics != nil {
				c.metrics.RecordLastPrice(p)
			}
		}
	}
}

// LastPrice returns the most recent ticker price, or 0 when none arrived yet.
func (c *PriceCollector) LastPrice() float64 {
	return math.Float64frombits(c.last.Load())
}

// Stop closes the stream.
func (c *PriceCollector) Stop() error {
	return c.stream.Close()
}
