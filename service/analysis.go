package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/soumoditt-source/EcoDrone-AI/config"
	"github.com/soumoditt-source/EcoDrone-AI/model"
	"github.com/soumoditt-source/EcoDrone-AI/utils"
	"go.uber.org/zap"
)

const (
	maxErrorBody  = 64 * 1024
	maxResultBody = 32 * 1024 * 1024

	genericServiceMessage = "analysis failed, please try again"
)

// Analyzer submits an OP1/OP3 pair for analysis.
type Analyzer interface {
	Analyze(ctx context.Context, op1, op3 *model.ImageAsset) (*model.AnalysisResult, error)
}

// AnalysisClient talks to the external analysis service over HTTP.
type AnalysisClient struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

func NewAnalysisClient(cfg *config.AnalysisConfig) *AnalysisClient {
	return &AnalysisClient{
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Analyze posts both images in one multipart request and interprets the reply.
// Every failure is a *model.WorkflowError.
func (c *AnalysisClient) Analyze(ctx context.Context, op1, op3 *model.ImageAsset) (*model.AnalysisResult, error) {
	if op1 == nil || op3 == nil {
		return nil, ErrMissingImages
	}

	body, contentType, err := encodeImages(op1, op3)
	if err != nil {
		return nil, model.NewServiceError(genericServiceMessage, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, model.NewServiceError(genericServiceMessage, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := errorMessage(data, resp.Status)
		utils.Logger.Warn("analysis service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg))
		return nil, model.NewServiceError(msg, fmt.Errorf("status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBody))
	if err != nil {
		return nil, c.transportError(err)
	}

	result, err := decodeResult(data)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("analysis completed",
		zap.String("status", string(result.Status)),
		zap.Int("details", len(result.Details)),
		zap.Float64("survival_rate", result.SurvivalRate),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

func (c *AnalysisClient) transportError(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &model.WorkflowError{
			Kind:    model.ErrTimeout,
			Message: fmt.Sprintf("analysis did not finish within %s", c.timeout),
			Err:     err,
		}
	case errors.Is(err, context.Canceled):
		return &model.WorkflowError{Kind: model.ErrUnreachable, Message: "analysis request was cancelled", Err: err}
	default:
		return &model.WorkflowError{Kind: model.ErrUnreachable, Message: "analysis service is unreachable", Err: err}
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeImages(op1, op3 *model.ImageAsset) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, asset := range []*model.ImageAsset{op1, op3} {
		filename := asset.Filename
		if filename == "" {
			filename = string(asset.Slot)
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			asset.Slot.FormField(), quoteEscaper.Replace(filename)))
		h.Set("Content-Type", asset.MIMEType)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("create form part: %w", err)
		}
		if _, err := part.Write(asset.Bytes()); err != nil {
			return nil, "", fmt.Errorf("write image data: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

// errorMessage picks the most specific message from an error body:
// detail, then message, then the transport status text.
func errorMessage(body []byte, status string) string {
	var structured struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if len(structured.Detail) > 0 && string(structured.Detail) != "null" {
			var s string
			if err := json.Unmarshal(structured.Detail, &s); err == nil && s != "" {
				return s
			}
			if string(structured.Detail) != `""` {
				return string(structured.Detail)
			}
		}
		if structured.Message != "" {
			return structured.Message
		}
	}
	if status != "" {
		return status
	}
	return genericServiceMessage
}

type wireDetail struct {
	ID         model.PitID `json:"id"`
	X          *float64    `json:"x"`
	Y          *float64    `json:"y"`
	Status     string      `json:"status"`
	Confidence *float64    `json:"confidence"`
}

type wireResult struct {
	Status         string        `json:"status"`
	Message        string        `json:"message"`
	Registration   string        `json:"registration"`
	SurvivalRate   *float64      `json:"survival_rate"`
	TotalPits      *int          `json:"total_pits"`
	DeadCount      *int          `json:"dead_count"`
	ProcessingTime float64       `json:"processing_time"`
	Details        *[]wireDetail `json:"details"`
}

func decodeResult(data []byte) (*model.AnalysisResult, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, model.NewServiceError("analysis service returned an unreadable response", err)
	}

	status := model.AnalysisStatus(w.Status)
	if status != model.StatusSuccess && status != model.StatusPartialError {
		msg := w.Message
		if msg == "" {
			msg = fmt.Sprintf("analysis service reported status %q", w.Status)
		}
		return nil, model.NewServiceError(msg, nil)
	}

	switch {
	case w.Details == nil:
		return nil, malformed("details missing")
	case w.SurvivalRate == nil:
		return nil, malformed("survival_rate missing")
	case w.TotalPits == nil:
		return nil, malformed("total_pits missing")
	case w.DeadCount == nil:
		return nil, malformed("dead_count missing")
	case math.IsNaN(*w.SurvivalRate) || *w.SurvivalRate < 0 || *w.SurvivalRate > 100:
		return nil, malformed(fmt.Sprintf("survival_rate %v outside [0,100]", *w.SurvivalRate))
	case *w.TotalPits < 0 || *w.DeadCount < 0:
		return nil, malformed("negative counts")
	}

	result := &model.AnalysisResult{
		Status:         status,
		Message:        w.Message,
		Registration:   w.Registration,
		SurvivalRate:   *w.SurvivalRate,
		TotalPits:      *w.TotalPits,
		DeadCount:      *w.DeadCount,
		ProcessingTime: w.ProcessingTime,
		Details:        make([]model.PitDetail, 0, len(*w.Details)),
	}

	dead := 0
	for i, d := range *w.Details {
		detail, err := convertDetail(i, d)
		if err != nil {
			return nil, err
		}
		if detail.Status == model.PitDead {
			dead++
		}
		result.Details = append(result.Details, detail)
	}

	if dead != result.DeadCount {
		utils.Logger.Warn("dead_count disagrees with details",
			zap.Int("dead_count", result.DeadCount),
			zap.Int("dead_details", dead))
	}

	return result, nil
}

func convertDetail(i int, d wireDetail) (model.PitDetail, error) {
	if d.X == nil || d.Y == nil {
		return model.PitDetail{}, malformed(fmt.Sprintf("detail %d has no position", i))
	}
	if d.Confidence == nil || *d.Confidence < 0 || *d.Confidence > 1 {
		return model.PitDetail{}, malformed(fmt.Sprintf("detail %d has no confidence in [0,1]", i))
	}
	status := model.PitStatus(d.Status)
	if status != model.PitAlive && status != model.PitDead {
		return model.PitDetail{}, malformed(fmt.Sprintf("detail %d has unknown status %q", i, d.Status))
	}

	id := d.ID
	if id == "" {
		id = model.IndexPitID(i)
	}

	return model.PitDetail{
		ID:         id,
		X:          *d.X,
		Y:          *d.Y,
		Status:     status,
		Confidence: *d.Confidence,
	}, nil
}

func malformed(reason string) error {
	return model.NewServiceError("analysis service returned a malformed result", errors.New(reason))
}
