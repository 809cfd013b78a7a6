package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"attendbot/internal/calendar"
	logx "attendbot/pkg/logx"
)

// fileStore keeps the leave list in a single human-editable document.
//
// Files:
//   - <path>                  (JSON array, or YAML list for .yaml/.yml)
//   - <prefix>.audit.jsonl    (append-only JSON Lines)
//
// Saves go through a temp file and a rename so a concurrent reader (or the
// file watcher) never observes a half-written document.
type fileStore struct {
	log  logx.Logger
	path string
	yaml bool

	mu        sync.Mutex
	auditFile *os.File
}

// leaveDoc is the alternative top-level shape {"leaves": [...]}.
type leaveDoc struct {
	Leaves []calendar.Leave `json:"leaves" yaml:"leaves"`
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	af, err := os.OpenFile(filepath.Join(dir, base+".audit.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &fileStore{
		log:       log,
		path:      path,
		yaml:      ext == ".yaml" || ext == ".yml",
		auditFile: af,
	}, nil
}

func (s *fileStore) Path() string { return s.path }

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil
	}
	err := s.auditFile.Close()
	s.auditFile = nil
	return err
}

// LoadLeaves treats a missing or empty file as an empty list.
func (s *fileStore) LoadLeaves(ctx context.Context) ([]calendar.Leave, error) {
	_ = ctx
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, nil
	}
	leaves, err := s.decode(b)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for i, l := range leaves {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("%s: entry %d: %w", s.path, i, err)
		}
	}
	return leaves, nil
}

func (s *fileStore) decode(b []byte) ([]calendar.Leave, error) {
	var (
		list []calendar.Leave
		doc  leaveDoc
	)
	if s.yaml {
		if err := yaml.Unmarshal(b, &list); err == nil {
			return list, nil
		}
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		return doc.Leaves, nil
	}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, err
		}
		return doc.Leaves, nil
	}
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *fileStore) SaveLeaves(ctx context.Context, leaves []calendar.Leave) error {
	_ = ctx
	if leaves == nil {
		leaves = []calendar.Leave{}
	}
	var (
		b   []byte
		err error
	)
	if s.yaml {
		b, err = yaml.Marshal(leaves)
	} else {
		b, err = json.MarshalIndent(leaves, "", "  ")
		b = append(b, '\n')
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	s.log.Debug("leaves saved", logx.String("path", s.path), logx.Int("count", len(leaves)))
	return nil
}

func (s *fileStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return errors.New("audit file closed")
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}
