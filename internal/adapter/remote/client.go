// Package remote 封装调用下游 HTTP 服务的公共逻辑：鉴权头透传、超时和错误分类。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kweaver-ai/ai-store/internal/domain"
)

const (
	HeaderAuthorization  = "Authorization"
	HeaderBusinessDomain = "X-Business-Domain"

	maxErrorBody = 512
)

// Client 是绑定到单个下游服务的 HTTP 客户端。
type Client struct {
	service    string
	baseURL    string
	httpClient *http.Client
}

func NewClient(service, baseURL string, timeout time.Duration) *Client {
	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Service() string { return c.service }

// Request 描述一次调用。Body 为 io.Reader 时按原样发送，否则序列化为 JSON。
type Request struct {
	Method         string
	Path           string
	Query          url.Values
	Body           any
	ContentType    string
	Token          string
	BusinessDomain string
}

// Do 发送请求并把 2xx 响应体解码到 out（out 为 nil 时丢弃）。
// 连接失败返回 ErrServiceUnavailable，超时返回 ErrServiceTimeout，非 2xx 返回 *domain.RemoteError。
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	body, contentType, err := encodeBody(r)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.service, err)
	}
	reqURL := c.baseURL + r.Path
	if len(r.Query) > 0 {
		reqURL += "?" + r.Query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, reqURL, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.service, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if r.Token != "" {
		req.Header.Set(HeaderAuthorization, r.Token)
	}
	if r.BusinessDomain != "" {
		req.Header.Set(HeaderBusinessDomain, r.BusinessDomain)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.RemoteError{
			Service:    c.service,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(excerpt)),
		}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", c.service, err)
	}
	return nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: request cancelled: %w", c.service, ctx.Err())
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %w: %v", c.service, domain.ErrServiceTimeout, err)
	}
	return fmt.Errorf("%s: %w: %v", c.service, domain.ErrServiceUnavailable, err)
}

func encodeBody(r Request) (io.Reader, string, error) {
	switch b := r.Body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		ct := r.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		return b, ct, nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(raw), "application/json", nil
	}
}
