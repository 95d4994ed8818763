package repository

import (
	"sync"

	"dogebot/internal/domain/models"
)

// FileStatusSink atomically writes the status snapshot to a JSON file after
// every cycle and keeps the latest copy in memory for the HTTP API.
type FileStatusSink struct {
	path  string
	last  models.Status
	set   bool
	mutex sync.RWMutex
}

func NewFileStatusSink(path string) *FileStatusSink {
	return &FileStatusSink{path: path}
}

func (s *FileStatusSink) Write(status models.Status) error {
	s.mutex.Lock()
	s.last = status
	s.set = true
	s.mutex.Unlock()

	return writeJSONAtomic(s.path, status)
}

func (s *FileStatusSink) Last() (models.Status, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.last, s.set
}
