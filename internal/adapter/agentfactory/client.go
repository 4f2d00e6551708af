package agentfactory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kweaver-ai/ai-store/internal/adapter/remote"
	"github.com/kweaver-ai/ai-store/internal/port"
)

var _ port.AgentFactory = (*Client)(nil)

const (
	basePath       = "/api/agent-factory/v3"
	defaultVersion = "v0"
)

// Client 调用智能体工厂服务。
type Client struct {
	api *remote.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{api: remote.NewClient("agent-factory", strings.TrimRight(baseURL, "/")+basePath, timeout)}
}

func (c *Client) CreateAgent(ctx context.Context, definition any, token, businessDomain string) (*port.AgentCreated, error) {
	var resp port.AgentCreated
	err := c.api.Do(ctx, remote.Request{
		Method:         http.MethodPost,
		Path:           "/agent",
		Body:           definition,
		Token:          token,
		BusinessDomain: businessDomain,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%s: create agent returned no id", c.api.Service())
	}
	if resp.Version == "" {
		resp.Version = defaultVersion
	}
	return &resp, nil
}

func (c *Client) GetAgent(ctx context.Context, id, token, businessDomain string) (map[string]any, error) {
	var resp map[string]any
	err := c.api.Do(ctx, remote.Request{
		Method:         http.MethodGet,
		Path:           "/agent/" + url.PathEscape(id),
		Token:          token,
		BusinessDomain: businessDomain,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
