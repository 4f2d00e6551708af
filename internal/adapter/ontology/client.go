package ontology

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

var _ port.OntologyManager = (*Client)(nil)

const basePath = "/api/ontology-manager/v1"

// Client 调用本体管理服务导入和查询知识网络。
type Client struct {
	api *remote.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{api: remote.NewClient("ontology-manager", strings.TrimRight(baseURL, "/")+basePath, timeout)}
}

type createdNetwork struct {
	ID string `json:"id"`
}

// CreateKnowledgeNetwork 导入知识网络，同名网络会被覆盖。返回新网络的 id。
func (c *Client) CreateKnowledgeNetwork(ctx context.Context, definition any, token, businessDomain string) (string, error) {
	var resp []createdNetwork
	err := c.api.Do(ctx, remote.Request{
		Method:         http.MethodPost,
		Path:           "/knowledge-networks",
		Query:          url.Values{"import_networks": {"overwrite"}},
		Body:           definition,
		Token:          token,
		BusinessDomain: businessDomain,
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp) == 0 || resp[0].ID == "" {
		return "", fmt.Errorf("%s: create knowledge network returned no id", c.api.Service())
	}
	return resp[0].ID, nil
}

func (c *Client) GetKnowledgeNetwork(ctx context.Context, id, token, businessDomain string) (map[string]any, error) {
	var resp map[string]any
	err := c.api.Do(ctx, remote.Request{
		Method: http.MethodGet,
		Path:   "/knowledge-networks/" + url.PathEscape(id),
		Query: url.Values{
			"include_details":    {"true"},
			"include_statistics": {"true"},
		},
		Token:          token,
		BusinessDomain: businessDomain,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
