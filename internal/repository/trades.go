package repository

import (
	"encoding/json"
	"errors"
	"os"
	"sync"

	"dogebot/pkg/logger"
)

type tradeRecord struct {
	TradesMade int `json:"trades_made"`
}

// FileTradeCounter persists a lifetime count of real submitted orders. The
// count survives restarts; dry-run and failed submissions never touch it.
type FileTradeCounter struct {
	path  string
	log   *logger.Logger
	count int
	mutex sync.Mutex
}

func NewFileTradeCounter(path string, log *logger.Logger) *FileTradeCounter {
	c := &FileTradeCounter{path: path, log: log}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn("trade counter unreadable, starting at zero",
				logger.String("path", path), logger.Error(err))
		}
		return c
	}
	var rec tradeRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.TradesMade < 0 {
		log.Warn("trade counter corrupt, starting at zero",
			logger.String("path", path))
		return c
	}
	c.count = rec.TradesMade
	return c
}

func (c *FileTradeCounter) Increment() (int, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	next := c.count + 1
	if err := writeJSONAtomic(c.path, tradeRecord{TradesMade: next}); err != nil {
		return c.count, err
	}
	c.count = next
	return c.count, nil
}

func (c *FileTradeCounter) Count() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.count
}
