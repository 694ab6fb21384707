package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

const (
	previewKeyPrefix = "preview:"
	fieldMIME        = "mime"
	fieldData        = "data"
)

// RedisPreviewStore keeps previews in redis hashes with a TTL so that
// abandoned sessions do not hold image bytes forever.
type RedisPreviewStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPreviewStore(cfg *config.RedisConfig, ttl time.Duration) *RedisPreviewStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisPreviewStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *RedisPreviewStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func previewKey(ref model.PreviewRef) string {
	return previewKeyPrefix + string(ref)
}

// Put stores the preview and returns its reference.
func (s *RedisPreviewStore) Put(ctx context.Context, id string, p Preview) (model.PreviewRef, error) {
	if id == "" {
		return "", fmt.Errorf("preview id is empty")
	}
	ref := model.PreviewRef(id)
	key := previewKey(ref)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldMIME, p.MIMEType, fieldData, p.Data)
		if s.ttl > 0 {
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("store preview: %w", err)
	}
	return ref, nil
}

// Get loads a preview. Expired or released previews return ErrPreviewNotFound.
func (s *RedisPreviewStore) Get(ctx context.Context, ref model.PreviewRef) (*Preview, error) {
	fields, err := s.client.HGetAll(ctx, previewKey(ref)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrPreviewNotFound
		}
		return nil, err
	}
	data, ok := fields[fieldData]
	if !ok {
		return nil, ErrPreviewNotFound
	}

	return &Preview{MIMEType: fields[fieldMIME], Data: []byte(data)}, nil
}

// Release deletes the preview.
func (s *RedisPreviewStore) Release(ctx context.Context, ref model.PreviewRef) error {
	if err := s.client.Del(ctx, previewKey(ref)).Err(); err != nil {
		utils.Logger.Warn("failed to release preview",
			zap.String("preview", string(ref)), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisPreviewStore) Close() error {
	return s.client.Close()
}
