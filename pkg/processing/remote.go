package processing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"audio-studio/pkg/models"
)

var (
	ErrBackendStatus = errors.New("processing backend returned non-success status")
	ErrEmptyResponse = errors.New("processing backend returned an empty body")
)

// RemoteProcessor posts the asset to a fixed endpoint as a multipart upload
// and takes the response body as the mastered track. Mastering parameters,
// when the job has them, go along as plain form fields.
type RemoteProcessor struct {
	endpoint string
	field    string
	http     *http.Client
}

func NewRemoteProcessor(endpoint, field string, timeout time.Duration) *RemoteProcessor {
	return &RemoteProcessor{
		endpoint: endpoint,
		field:    field,
		http:     &http.Client{Timeout: timeout},
	}
}

func (p *RemoteProcessor) Process(ctx context.Context, job *models.Job, asset *models.Asset) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	filename := asset.Filename
	if filename == "" {
		filename = "audio"
	}
	part, err := writer.CreateFormFile(p.field, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(asset.Data); err != nil {
		return nil, fmt.Errorf("write form file: %w", err)
	}
	if job != nil && job.Params != nil {
		for _, f := range job.Params.Fields() {
			if err := writer.WriteField(f.Name, strconv.Itoa(f.Value)); err != nil {
				return nil, fmt.Errorf("write field %s: %w", f.Name, err)
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	log.Printf("Remote Processor: posting asset %s (%d bytes) to %s", asset.ID, asset.Size, p.endpoint)
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("processing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d %s", ErrBackendStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyResponse
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Result{
		Tracks: []Output{{
			Role:        models.RoleMastered,
			Filename:    models.RoleMastered.DownloadName(),
			ContentType: contentType,
			Data:        data,
		}},
	}, nil
}
