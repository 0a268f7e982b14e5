// Package avatar issues short-lived streaming tokens for the HeyGen video avatar.
package avatar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public HeyGen API.
const DefaultBaseURL = "https://api.heygen.com"

// ErrAPIKeyMissing 表示未配置 HeyGen API Key。
var ErrAPIKeyMissing = errors.New("HeyGen API key not configured")

// Client 封装 HeyGen 流式令牌的申请。
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// ClientOption 自定义 Client。
type ClientOption func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端。
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL 指向其它 HeyGen 环境，末尾的 "/" 会被去掉。
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// NewClient 创建一个新的 Client。
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// CreateToken 申请一个流式会话令牌，供浏览器端 SDK 建立头像连接。
func (c *Client) CreateToken(ctx context.Context) (string, error) {
	if c.apiKey == "" {
		return "", ErrAPIKeyMissing
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/streaming.create_token", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := strings.TrimSpace(string(body))
		if detail == "" {
			detail = "<no-body>"
		}
		return "", fmt.Errorf("HeyGen token request failed: %d %s - %s", resp.StatusCode, http.StatusText(resp.StatusCode), detail)
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if parsed.Data.Token == "" {
		return "", errors.New("HeyGen token response without token")
	}
	return parsed.Data.Token, nil
}
