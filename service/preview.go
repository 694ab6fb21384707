package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

var ErrPreviewNotFound = errors.New("preview not found")

// Preview is the stored form of an image preview.
type Preview struct {
	MIMEType string
	Data     []byte
}

// PreviewStore holds preview bytes behind session-scoped references. Every
// reference handed out by Put must eventually be passed to Release.
type PreviewStore interface {
	Put(ctx context.Context, id string, p Preview) (model.PreviewRef, error)
	Get(ctx context.Context, ref model.PreviewRef) (*Preview, error)
	Release(ctx context.Context, ref model.PreviewRef) error
	Close() error
}

// NewPreviewStore builds the store named by cfg.Preview.Store. A redis store
// that cannot be reached degrades to the in-memory store.
func NewPreviewStore(ctx context.Context, cfg *config.Config) PreviewStore {
	if cfg.Preview.Store != "redis" {
		return NewMemoryPreviewStore()
	}

	store := NewRedisPreviewStore(&cfg.Redis, cfg.Preview.TTL)
	if err := store.Ping(ctx); err != nil {
		utils.Logger.Warn("redis connection failed, previews kept in memory", zap.Error(err))
		_ = store.Close()
		return NewMemoryPreviewStore()
	}
	utils.Logger.Info("redis connected successfully", zap.String("addr", cfg.Redis.Addr))
	return store
}

// MemoryPreviewStore keeps previews in process memory.
type MemoryPreviewStore struct {
	mu       sync.RWMutex
	previews map[model.PreviewRef]Preview
}

func NewMemoryPreviewStore() *MemoryPreviewStore {
	return &MemoryPreviewStore{previews: make(map[model.PreviewRef]Preview)}
}

func (s *MemoryPreviewStore) Put(_ context.Context, id string, p Preview) (model.PreviewRef, error) {
	if id == "" {
		return "", fmt.Errorf("preview id is empty")
	}
	ref := model.PreviewRef(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[ref] = p
	return ref, nil
}

func (s *MemoryPreviewStore) Get(_ context.Context, ref model.PreviewRef) (*Preview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[ref]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	return &p, nil
}

func (s *MemoryPreviewStore) Release(_ context.Context, ref model.PreviewRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.previews, ref)
	return nil
}

// Len returns the number of live previews.
func (s *MemoryPreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

func (s *MemoryPreviewStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews = make(map[model.PreviewRef]Preview)
	return nil
}
