package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

const sniffLen = 512

// Selection is a file the operator picked for a slot.
type Selection struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Uploader validates file selections and turns them into image assets.
type Uploader struct {
	maxSize    int64
	typePrefix string
	previews   PreviewStore
}

func NewUploader(cfg *config.UploadConfig, previews PreviewStore) *Uploader {
	return &Uploader{
		maxSize:    cfg.MaxSize,
		typePrefix: cfg.TypePrefix,
		previews:   previews,
	}
}

// Accept validates sel and, on success, loads it into a new asset with a
// registered preview. A nil selection is a no-op and returns (nil, nil).
// Checks short-circuit in order: type, then size.
func (u *Uploader) Accept(ctx context.Context, slot model.Slot, sel *Selection) (*model.ImageAsset, error) {
	if sel == nil || sel.Open == nil {
		return nil, nil
	}

	rc, err := sel.Open()
	if err != nil {
		return nil, fmt.Errorf("open selection: %w", err)
	}
	defer rc.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	head = head[:n]

	contentType := sel.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(head)
	}
	if !u.isAllowedType(contentType) {
		return nil, model.NewValidationError(fmt.Sprintf("%s must be an image, got %s", slot, contentType))
	}

	if sel.Size > u.maxSize {
		return nil, u.tooLarge(slot)
	}

	// The declared size may lie; never read past the limit.
	rest, err := io.ReadAll(io.LimitReader(rc, u.maxSize-int64(len(head))+1))
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	data := append(head, rest...)
	if int64(len(data)) > u.maxSize {
		return nil, u.tooLarge(slot)
	}

	dims, format, err := ProbeDimensions(data)
	if err != nil {
		utils.Logger.Warn("image dimensions unresolved",
			zap.String("slot", string(slot)),
			zap.String("filename", sel.Filename),
			zap.Error(err))
	}

	id := utils.NewAssetID()
	ref, err := u.previews.Put(ctx, id, Preview{MIMEType: contentType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("register preview: %w", err)
	}

	asset := model.NewImageAsset(model.AssetParams{
		ID:         id,
		Slot:       slot,
		Filename:   sel.Filename,
		MIMEType:   contentType,
		Dimensions: dims,
		Preview:    ref,
		Digest:     utils.BytesMD5(data),
		Data:       data,
	})

	utils.Logger.Info("image accepted",
		zap.String("slot", string(slot)),
		zap.String("filename", sel.Filename),
		zap.String("format", format),
		zap.Int64("size", asset.Size),
		zap.Int("width", dims.Width),
		zap.Int("height", dims.Height))

	return asset, nil
}

func (u *Uploader) isAllowedType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), u.typePrefix)
}

func (u *Uploader) tooLarge(slot model.Slot) error {
	return model.NewValidationError(fmt.Sprintf("%s exceeds the size limit (%d MB)", slot, u.maxSize/(1024*1024)))
}

// SelectionFromBytes wraps in-memory data as a Selection.
func SelectionFromBytes(filename, contentType string, data []byte) *Selection {
	return &Selection{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
