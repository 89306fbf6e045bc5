// Package cdf is a minimal client for the Cognite Data Fusion Files API.
package cdf

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cdf-tools/streamlit-deploy/internal/domain"
)

const maxErrorBody = 64 << 10

type Config struct {
	BaseURL string
	Project string
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("base url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base url must be absolute (got %q)", c.BaseURL)
	}
	if strings.TrimSpace(c.Project) == "" {
		return errors.New("project is required")
	}
	return nil
}

// Client talks to one CDF project. api must authenticate requests; upload is
// used for the signed upload URL and must not.
type Client struct {
	baseURL string
	project string
	api     *http.Client
	upload  *http.Client
}

func NewClient(cfg Config, api, upload *http.Client) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if api == nil {
		return nil, errors.New("api http client is required")
	}
	if upload == nil {
		upload = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		project: cfg.Project,
		api:     api,
		upload:  upload,
	}, nil
}

// FileCreate is the metadata of a file to create.
type FileCreate struct {
	ExternalID string            `json:"externalId"`
	Name       string            `json:"name"`
	Directory  string            `json:"directory,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	DataSetID  *int64            `json:"dataSetId,omitempty"`
	MimeType   string            `json:"mimeType,omitempty"`
}

type File struct {
	ID         int64             `json:"id"`
	ExternalID string            `json:"externalId"`
	Name       string            `json:"name"`
	Directory  string            `json:"directory"`
	Metadata   map[string]string `json:"metadata"`
	DataSetID  *int64            `json:"dataSetId"`
	MimeType   string            `json:"mimeType"`
	Uploaded   bool              `json:"uploaded"`
	UploadURL  string            `json:"uploadUrl"`
}

// APIError is a non-2xx response from CDF.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("cdf api status %d", e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.RequestID != "" {
		msg += " (request id " + e.RequestID + ")"
	}
	return msg
}

// CreateFile registers file metadata and returns the upload URL. With
// overwrite set, an existing file with the same external id is replaced.
func (c *Client) CreateFile(ctx context.Context, file FileCreate, overwrite bool) (File, error) {
	endpoint := c.projectURL("files")
	if overwrite {
		endpoint += "?overwrite=true"
	}
	body, err := json.Marshal(file)
	if err != nil {
		return File{}, fmt.Errorf("encode file metadata: %w", err)
	}

	var out File
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, &out); err != nil {
		return File{}, domain.RemoteError("create file", err)
	}
	if out.UploadURL == "" {
		return File{}, domain.RemoteError("create file", errors.New("response has no uploadUrl"))
	}
	return out, nil
}

// Upload PUTs content to a signed upload URL returned by CreateFile.
func (c *Client) Upload(ctx context.Context, uploadURL, contentType string, content []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return domain.RemoteError("upload file content", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.upload.Do(req)
	if err != nil {
		return domain.RemoteError("upload file content", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.RemoteError("upload file content", apiError(resp))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// UploadBytes creates the file and uploads its content in one call.
func (c *Client) UploadBytes(ctx context.Context, file FileCreate, content []byte, overwrite bool) (File, error) {
	created, err := c.CreateFile(ctx, file, overwrite)
	if err != nil {
		return File{}, err
	}
	if err := c.Upload(ctx, created.UploadURL, file.MimeType, content); err != nil {
		return File{}, err
	}
	return created, nil
}

type TokenInspection struct {
	Subject  string         `json:"subject"`
	Projects []TokenProject `json:"projects"`
}

type TokenProject struct {
	ProjectURLName string  `json:"projectUrlName"`
	Groups         []int64 `json:"groups"`
}

func (c *Client) InspectToken(ctx context.Context) (TokenInspection, error) {
	var out TokenInspection
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/api/v1/token/inspect", nil, &out); err != nil {
		return TokenInspection{}, domain.RemoteError("inspect token", err)
	}
	return out, nil
}

// VerifyProjectAccess fails unless the token is scoped to the client's project.
func (c *Client) VerifyProjectAccess(ctx context.Context) error {
	inspection, err := c.InspectToken(ctx)
	if err != nil {
		return err
	}
	for _, p := range inspection.Projects {
		if p.ProjectURLName == c.project {
			return nil
		}
	}
	return domain.RemoteError("verify project access",
		fmt.Errorf("token for subject %q has no access to project %q", inspection.Subject, c.project))
}

func (c *Client) projectURL(resource string) string {
	return fmt.Sprintf("%s/api/v1/projects/%s/%s", c.baseURL, url.PathEscape(c.project), resource)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, RequestID: resp.Header.Get("X-Request-Id")}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return apiErr
}
