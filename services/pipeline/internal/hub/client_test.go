package hub

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"jobclean/services/pipeline/internal/errors"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed_jobs.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func request(path string) UploadRequest {
	return UploadRequest{
		LocalPath:  path,
		PathInRepo: "Pyspark_processed.csv",
		RepoID:     "Gamerfleet/Pyspark_processed",
		RepoType:   RepoTypeDataset,
	}
}

func TestUploadFile(t *testing.T) {
	const content = "job_id,job_title\nAI1,Data Engineer\n"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/datasets/Gamerfleet/Pyspark_processed/commit/main", r.URL.Path)
		assert.Equal(t, "application/x-ndjson", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer hf_secret", r.Header.Get("Authorization"))

		var lines []map[string]any
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			var line map[string]any
			require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
			lines = append(lines, line)
		}
		require.Len(t, lines, 2)
		assert.Equal(t, "header", lines[0]["key"])
		assert.Equal(t, "Upload Pyspark_processed.csv with huggingface_hub",
			lines[0]["value"].(map[string]any)["summary"])

		file := lines[1]["value"].(map[string]any)
		assert.Equal(t, "file", lines[1]["key"])
		assert.Equal(t, "Pyspark_processed.csv", file["path"])
		assert.Equal(t, "base64", file["encoding"])
		decoded, err := base64.StdEncoding.DecodeString(file["content"].(string))
		require.NoError(t, err)
		assert.Equal(t, content, string(decoded))

		_, _ = w.Write([]byte(`{"success":true,"commitOid":"abc123","commitUrl":"https://hub/commit/abc123"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "hf_secret", srv.Client(), zaptest.NewLogger(t))
	info, err := c.UploadFile(context.Background(), request(writeFile(t, content)))
	require.NoError(t, err)
	assert.Equal(t, &CommitInfo{CommitURL: "https://hub/commit/abc123", CommitOID: "abc123"}, info)
}

func TestUploadFile_AnonymousWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Equal(t, "/api/datasets/org/repo/commit/refs%2Fpr%2F1", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"commitOid":"1"}`))
	}))
	defer srv.Close()

	req := request(writeFile(t, "a\n"))
	req.RepoID = "org/repo"
	req.Revision = "refs/pr/1"

	_, err := NewClient(srv.URL, "", srv.Client(), zaptest.NewLogger(t)).UploadFile(context.Background(), req)
	require.NoError(t, err)
}

func TestUploadFile_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   errors.ErrorType
	}{
		{http.StatusUnauthorized, errors.ErrTypeUnauthorized},
		{http.StatusForbidden, errors.ErrTypeUnauthorized},
		{http.StatusNotFound, errors.ErrTypeNotFound},
		{http.StatusTooManyRequests, errors.ErrTypeRateLimit},
		{http.StatusBadGateway, errors.ErrTypeUnavailable},
		{http.StatusConflict, errors.ErrTypeInternal},
	}

	path := writeFile(t, "a\n")
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"Invalid username or password."}`))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", srv.Client(), zaptest.NewLogger(t)).UploadFile(context.Background(), request(path))
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.TypeOf(err))
			assert.Contains(t, err.Error(), "Invalid username or password.")
		})
	}
}

func TestUploadFile_InvalidRequest(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", nil, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := c.UploadFile(ctx, request(filepath.Join(t.TempDir(), "missing.csv")))
	assert.True(t, errors.Is(err, errors.ErrTypeNotFound))

	req := request(writeFile(t, "a\n"))
	req.RepoType = "bucket"
	_, err = c.UploadFile(ctx, req)
	assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))

	req = request(writeFile(t, "a\n"))
	req.RepoID = "a/b/c"
	_, err = c.UploadFile(ctx, req)
	assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))
}
