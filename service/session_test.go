package service

import (
	"context"
	"testing"
	"time"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRegistryLifecycle(t *testing.T) {
	store := NewMemoryPreviewStore()
	reg := NewSessionRegistry(&config.SessionConfig{IdleTimeout: time.Hour, MaxSessions: 2}, newFakeAnalyzer(), store)
	ctx := context.Background()

	s, err := reg.Create()
	require.NoError(t, err)
	assert.Equal(t, model.StateIdle, s.Workflow.State().State)

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	asset, err := NewUploader(&testUploadConfig, store).Accept(ctx, model.SlotOP1,
		SelectionFromBytes("a.png", "image/png", pngBytes(t, 4, 4)))
	require.NoError(t, err)
	require.NoError(t, s.Workflow.Select(ctx, model.SlotOP1, asset))
	assert.Equal(t, 1, store.Len())

	_, err = reg.Create()
	require.NoError(t, err)
	_, err = reg.Create()
	assert.ErrorIs(t, err, ErrTooManySessions)

	require.NoError(t, reg.Close(ctx, s.ID))
	assert.Zero(t, store.Len(), "closing a session releases its previews")
	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, reg.Close(ctx, s.ID), ErrSessionNotFound)
}

func TestSessionRegistrySweepKeepsBusySessions(t *testing.T) {
	fa := newFakeAnalyzer()
	reg := NewSessionRegistry(&config.SessionConfig{IdleTimeout: time.Minute}, fa, NewMemoryPreviewStore())
	ctx := context.Background()

	idle, err := reg.Create()
	require.NoError(t, err)

	busy, err := reg.Create()
	require.NoError(t, err)
	require.NoError(t, busy.Workflow.Select(ctx, model.SlotOP1, testAsset(t, model.SlotOP1, 4, 4)))
	require.NoError(t, busy.Workflow.Select(ctx, model.SlotOP3, testAsset(t, model.SlotOP3, 4, 4)))
	_, err = busy.Workflow.Submit()
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Sweep(ctx, time.Now().Add(2*time.Minute)))
	_, err = reg.Get(idle.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = reg.Get(busy.ID)
	assert.NoError(t, err)

	fa.replies <- reply{result: successResult()}
	require.NoError(t, busy.Workflow.Wait(ctx))
	reg.CloseAll()
	assert.Zero(t, reg.Len())
}
