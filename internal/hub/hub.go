package hub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Client uploads dataset files to the Hugging Face Hub over its HTTP API.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Hub client. The token falls back to the HF_TOKEN
// environment variable.
func NewClient(token string) (*Client, error) {
	if token == "" {
		token = os.Getenv("HF_TOKEN")
	}
	if token == "" {
		return nil, fmt.Errorf("Hugging Face token is required (set HF_TOKEN)")
	}

	baseURL := "https://huggingface.co"
	if u := os.Getenv("PIDGINFORGE_HF_BASE_URL"); u != "" {
		baseURL = u
	}

	return &Client{
		token:   token,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// CreateDatasetRepo creates the dataset repository if it does not already
// exist. An existing repo is not an error.
func (c *Client) CreateDatasetRepo(ctx context.Context, repoID string) error {
	body, err := json.Marshal(map[string]interface{}{
		"type": "dataset",
		"name": repoID,
	})
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/api/repos/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create dataset repo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusConflict:
		// Conflict means the repo already exists.
		return nil
	default:
		return fmt.Errorf("failed to create dataset repo: %s", readError(resp))
	}
}

// UploadFile commits a local file into the dataset repo at pathInRepo on the
// main branch. File content travels base64-encoded inside an NDJSON commit
// payload, the Hub's single-request commit format.
func (c *Client) UploadFile(ctx context.Context, localPath, repoID, pathInRepo string) error {
	content, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	_ = enc.Encode(map[string]interface{}{
		"key": "header",
		"value": map[string]string{
			"summary": fmt.Sprintf("Upload %s", pathInRepo),
		},
	})
	_ = enc.Encode(map[string]interface{}{
		"key": "file",
		"value": map[string]string{
			"path":     pathInRepo,
			"content":  base64.StdEncoding.EncodeToString(content),
			"encoding": "base64",
		},
	})

	url := fmt.Sprintf("%s/api/datasets/%s/commit/main", c.baseURL, repoID)
	resp, err := c.do(ctx, http.MethodPost, url, "application/x-ndjson", &payload)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", pathInRepo, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to upload %s: %s", pathInRepo, readError(resp))
	}

	log.Info().
		Str("repo", repoID).
		Str("path", pathInRepo).
		Int("bytes", len(content)).
		Msg("Uploaded file to Hugging Face")

	return nil
}

func (c *Client) do(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)
	return c.http.Do(req)
}

func readError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(data))
}
