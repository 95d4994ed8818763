package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"dogebot/internal/domain/models"
	"dogebot/pkg/logger"
)

// ParamSourceDefault and ParamSourceLearned describe where the active trading
// parameters came from.
const (
	ParamSourceDefault = "default"
	ParamSourceLearned = "learned"
)

// FileParamStore persists learned parameters as a JSON file. Load never
// fails: an absent, unreadable, or invalid file falls back to the hardcoded
// defaults, so the bot always has something to trade with.
type FileParamStore struct {
	path  string
	log   *logger.Logger
	mutex sync.Mutex
}

func NewFileParamStore(path string, log *logger.Logger) *FileParamStore {
	return &FileParamStore{path: path, log: log}
}

func (s *FileParamStore) Load() (models.Params, string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("could not read params file, using defaults",
				logger.String("path", s.path), logger.Error(err))
		}
		return models.DefaultParams(), ParamSourceDefault
	}

	var p models.Params
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.Warn("params file is not valid JSON, using defaults",
			logger.String("path", s.path), logger.Error(err))
		return models.DefaultParams(), ParamSourceDefault
	}
	if p.Granularity == "" {
		p.Granularity = models.DefaultParams().Granularity
	}
	if err := p.Validate(); err != nil {
		s.log.Warn("params file failed validation, using defaults",
			logger.String("path", s.path), logger.Error(err))
		return models.DefaultParams(), ParamSourceDefault
	}
	return p, ParamSourceLearned
}

func (s *FileParamStore) Save(p models.Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid params: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return writeJSONAtomic(s.path, p)
}
