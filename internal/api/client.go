package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"feedme-console/internal/auth"
	"feedme-console/internal/dto"
	"feedme-console/internal/model"

	"github.com/go-playground/validator/v10"
)

// Client is the surface the domain stores depend on. Production code uses
// HTTPClient; tests substitute fakes.
type Client interface {
	ListConversations(ctx context.Context, params dto.ConversationListParams) (*dto.ConversationListResponse, error)
	GetConversation(ctx context.Context, id int64) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, id int64, req dto.UpdateConversationRequest) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id int64) error
	ApproveConversation(ctx context.Context, id int64) (*model.Conversation, error)
	RejectConversation(ctx context.Context, id int64) (*model.Conversation, error)
	ReprocessConversation(ctx context.Context, id int64) error
	AssignFolder(ctx context.Context, req dto.AssignFolderRequest) error
	UploadTranscript(ctx context.Context, req dto.UploadTranscriptRequest) (*model.Conversation, error)
	UploadTranscriptFile(ctx context.Context, filename string, content io.Reader) (*model.Conversation, error)

	ListExamples(ctx context.Context, conversationID int64) ([]model.Example, error)

	ListFolders(ctx context.Context) ([]model.Folder, error)
	CreateFolder(ctx context.Context, req dto.CreateFolderRequest) (*model.Folder, error)
	UpdateFolder(ctx context.Context, id int64, req dto.UpdateFolderRequest) (*model.Folder, error)
	DeleteFolder(ctx context.Context, id int64, moveTo *int64) error
	GetFolderCounts(ctx context.Context) (dto.FolderCounts, error)
}

// HTTPClient talks to the FeedMe REST backend. Transient failures (network
// errors, 429, 5xx) are retried with bounded exponential delay; everything
// else surfaces as a typed HTTPError.
type HTTPClient struct {
	baseURL    string
	tokens     auth.TokenSource
	httpClient *http.Client
	validate   *validator.Validate
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewHTTPClient(baseURL string, tokens auth.TokenSource, timeout time.Duration, maxRetries int) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &HTTPClient{
		baseURL:    baseURL,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
		maxRetries: maxRetries,
		baseDelay:  100 * time.Millisecond,
		maxDelay:   2 * time.Second,
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, method, requestPath string, body any, out any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if bodyBytes != nil {
			bodyReader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+requestPath, bodyReader)
		if err != nil {
			return err
		}
		if err := c.authorize(req); err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if attempt < c.maxRetries {
				if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, "")); waitErr != nil {
					return waitErr
				}
				continue
			}
			return err
		}
		payloadBytes, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return readErr
		}

		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			if out == nil || len(payloadBytes) == 0 {
				return nil
			}
			return json.Unmarshal(payloadBytes, out)
		}

		if (resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599)) && attempt < c.maxRetries {
			if waitErr := waitWithContext(ctx, c.retryDelay(attempt+1, resp.Header.Get("Retry-After"))); waitErr != nil {
				return waitErr
			}
			continue
		}

		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Detail  string `json:"detail"`
		}
		_ = json.Unmarshal(payloadBytes, &errPayload)
		message := errPayload.Message
		if message == "" {
			message = errPayload.Detail
		}
		return &HTTPError{
			StatusCode: resp.StatusCode,
			Code:       errPayload.Code,
			Message:    message,
		}
	}
}

func (c *HTTPClient) authorize(req *http.Request) error {
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *HTTPClient) retryDelay(attempt int, retryAfterHeader string) time.Duration {
	if retryAfter := parseRetryAfter(retryAfterHeader); retryAfter > 0 {
		if retryAfter > c.maxDelay {
			return c.maxDelay
		}
		return retryAfter
	}
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.maxDelay {
			return c.maxDelay
		}
	}
	if delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func parseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if ts, err := time.Parse(time.RFC1123, header); err == nil {
		if delta := time.Until(ts); delta > 0 {
			return delta
		}
	}
	return 0
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// uploadMultipart sends a single file field named "file".
func (c *HTTPClient) uploadMultipart(ctx context.Context, requestPath, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, content); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+requestPath, &buf)
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payloadBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payloadBytes, &errPayload)
		return &HTTPError{StatusCode: resp.StatusCode, Code: errPayload.Code, Message: errPayload.Message}
	}
	if out == nil || len(payloadBytes) == 0 {
		return nil
	}
	return json.Unmarshal(payloadBytes, out)
}

func (c *HTTPClient) validateRequest(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("api: invalid request: %w", err)
	}
	return nil
}
