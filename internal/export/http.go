package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// HTTPSink uploads workbooks to an external report drive. Folders are
// resolved segment by segment so the remote hierarchy matches the
// local one.
type HTTPSink struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPSink(baseURL, token string) *HTTPSink {
	return &HTTPSink{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *HTTPSink) Name() string { return "external" }

type folderRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent,omitempty"`
}

type folderResponse struct {
	ID string `json:"id"`
}

func (s *HTTPSink) EnsureFolder(ctx context.Context, path []string) (string, error) {
	parent := ""
	for _, segment := range path {
		payload, err := json.Marshal(folderRequest{Name: segment, Parent: parent})
		if err != nil {
			return "", fmt.Errorf("marshal folder request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/folders", bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("create folder request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		s.authorize(req)

		body, err := s.do(req)
		if err != nil {
			return "", fmt.Errorf("ensure folder %q: %w", segment, err)
		}

		var folder folderResponse
		if err := json.Unmarshal(body, &folder); err != nil {
			return "", fmt.Errorf("decode folder response: %w", err)
		}
		parent = folder.ID
	}
	return parent, nil
}

type uploadResponse struct {
	ID string `json:"id"`
}

func (s *HTTPSink) Upload(ctx context.Context, parent, name string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("parent", parent); err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/files", &buf)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	s.authorize(req)

	body, err := s.do(req)
	if err != nil {
		return "", fmt.Errorf("upload %q: %w", name, err)
	}

	var uploaded uploadResponse
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return uploaded.ID, nil
}

func (s *HTTPSink) authorize(req *http.Request) {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func (s *HTTPSink) do(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrAuthRequired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("sink returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
