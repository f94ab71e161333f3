// SPDX-License-Identifier: MIT
package emotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"biotune/internal/log"

	"github.com/go-resty/resty/v2"
)

// CaptureRequest asks the classifier to watch the camera for a while.
type CaptureRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

// CaptureResponse is the classifier's verdict. Emotion is preferred; when it is
// empty the per-frame labels are reduced with Dominant.
type CaptureResponse struct {
	Emotion    string   `json:"emotion"`
	Confidence float64  `json:"confidence,omitempty"`
	Frames     []string `json:"frames,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// HTTPCapturer calls a classifier service over HTTP: POST {base}/capture.
type HTTPCapturer struct {
	httpClient *resty.Client
	timeout    time.Duration
}

// NewHTTPCapturer creates a client for baseURL. timeout is added on top of the
// capture duration for each request.
func NewHTTPCapturer(baseURL string, timeout time.Duration) *HTTPCapturer {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetRetryCount(1).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(1 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPCapturer{
		httpClient: client,
		timeout:    timeout,
	}
}

// Capture blocks for roughly duration while the service observes, then returns
// the dominant label.
func (c *HTTPCapturer) Capture(ctx context.Context, duration time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, duration+c.timeout)
	defer cancel()

	log.Debugw("Calling emotion service", "duration", duration.String())

	var response CaptureResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(CaptureRequest{DurationSeconds: duration.Seconds()}).
		SetResult(&response).
		SetError(&response).
		Post("/capture")
	if err != nil {
		return "", fmt.Errorf("failed to call emotion service: %w", err)
	}
	if resp.IsError() {
		msg := response.Error
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("emotion service error: %s (status: %d)", msg, resp.StatusCode())
	}

	label := strings.ToLower(strings.TrimSpace(response.Emotion))
	if label == "" {
		label = Dominant(response.Frames)
	}
	log.Debugw("Emotion service replied", "emotion", label, "confidence", response.Confidence)
	return label, nil
}
