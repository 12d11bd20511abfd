// Package hub uploads files to a Hugging Face Hub repository through its
// commit API.
package hub

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"jobclean/common/telemetry"
	"jobclean/services/pipeline/internal/errors"

	"go.uber.org/zap"
)

var tracer = telemetry.GetTracer("jobclean/pipeline/hub")

const (
	RepoTypeDataset = "dataset"
	RepoTypeModel   = "model"
	RepoTypeSpace   = "space"
)

type UploadRequest struct {
	LocalPath  string
	PathInRepo string
	RepoID     string
	RepoType   string
	Revision   string
	Summary    string
}

type CommitInfo struct {
	CommitURL string `json:"commitUrl"`
	CommitOID string `json:"commitOid"`
}

type Uploader interface {
	UploadFile(ctx context.Context, req UploadRequest) (*CommitInfo, error)
}

type Client struct {
	endpoint string
	token    string
	client   *http.Client
	logger   *zap.Logger
}

// NewClient returns a client for endpoint. An empty token sends anonymous
// requests.
func NewClient(endpoint, token string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		client:   httpClient,
		logger:   logger,
	}
}

type ndjsonLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

type commitFile struct {
	Content  string `json:"content"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

func (c *Client) commitURL(req UploadRequest) (string, error) {
	repoType := req.RepoType
	if repoType == "" {
		repoType = RepoTypeModel
	}
	switch repoType {
	case RepoTypeDataset, RepoTypeModel, RepoTypeSpace:
	default:
		return "", errors.InvalidInput(fmt.Sprintf("unknown repo type %q", repoType), nil)
	}
	if strings.Count(req.RepoID, "/") > 1 || strings.TrimSpace(req.RepoID) == "" {
		return "", errors.InvalidInput(fmt.Sprintf("invalid repo id %q", req.RepoID), nil)
	}

	revision := req.Revision
	if revision == "" {
		revision = "main"
	}
	return fmt.Sprintf("%s/api/%ss/%s/commit/%s",
		c.endpoint, repoType, req.RepoID, url.PathEscape(revision)), nil
}

func commitBody(req UploadRequest, content []byte) ([]byte, error) {
	summary := req.Summary
	if summary == "" {
		summary = "Upload " + req.PathInRepo + " with huggingface_hub"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	lines := []ndjsonLine{
		{Key: "header", Value: commitHeader{Summary: summary}},
		{Key: "file", Value: commitFile{
			Content:  base64.StdEncoding.EncodeToString(content),
			Path:     req.PathInRepo,
			Encoding: "base64",
		}},
	}
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// UploadFile commits the file at req.LocalPath to req.PathInRepo.
func (c *Client) UploadFile(ctx context.Context, req UploadRequest) (*CommitInfo, error) {
	ctx, span := tracer.Start(ctx, "UploadFile")
	defer span.End()
	span.SetAttributes(
		telemetry.String("hub.repo_id", req.RepoID),
		telemetry.String("hub.repo_type", req.RepoType),
		telemetry.String("hub.path_in_repo", req.PathInRepo),
	)

	if req.PathInRepo == "" {
		return nil, errors.InvalidInput("path in repo is required", nil)
	}
	endpoint, err := c.commitURL(req)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(req.LocalPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound(fmt.Sprintf("upload source %s does not exist", req.LocalPath), err)
		}
		return nil, errors.Internal("reading upload source", err)
	}

	body, err := commitBody(req, content)
	if err != nil {
		return nil, errors.Internal("encoding commit", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Internal("creating request", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-ndjson")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("committing file",
		zap.String("url", endpoint),
		zap.String("local_path", req.LocalPath),
		zap.Int("bytes", len(content)))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		c.logger.Error("failed to execute request", zap.Error(err))
		return nil, errors.Unavailable("executing request", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn("failed to close response body", zap.Error(cerr))
		}
	}()

	span.SetAttributes(telemetry.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, statusError(resp)
	}

	var info CommitInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.Internal("decoding response", err)
	}

	c.logger.Info("Committed file",
		zap.String("repo_id", req.RepoID),
		zap.String("path_in_repo", req.PathInRepo),
		zap.String("commit_url", info.CommitURL))
	return &info, nil
}

func statusError(resp *http.Response) error {
	msg := readErrorMessage(resp.Body)
	text := fmt.Sprintf("hub returned %d", resp.StatusCode)
	if msg != "" {
		text += ": " + msg
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errors.Unauthorized(text, nil)
	case resp.StatusCode == http.StatusNotFound:
		return errors.NotFound(text, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errors.RateLimit(text, nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return errors.Unavailable(text, nil)
	default:
		return errors.Internal(text, nil)
	}
}

// readErrorMessage pulls the "error" field out of a JSON error body, or the
// first line of a plain text one.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	line, _, _ := bufio.NewReader(bytes.NewReader(data)).ReadLine()
	return strings.TrimSpace(string(line))
}

var _ Uploader = (*Client)(nil)
