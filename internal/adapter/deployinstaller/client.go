package deployinstaller

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kweaver-ai/ai-store/internal/adapter/remote"
	"github.com/kweaver-ai/ai-store/internal/port"
)

var _ port.DeployInstaller = (*Client)(nil)

const basePath = "/internal/api/deploy-installer/v1"

// Client 调用部署安装服务上传镜像、Chart 并管理 Release。
type Client struct {
	api *remote.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{api: remote.NewClient("deploy-installer", strings.TrimRight(baseURL, "/")+basePath, timeout)}
}

type uploadImageResponse struct {
	Images []port.ImageMapping `json:"images"`
}

func (c *Client) UploadImage(ctx context.Context, image io.Reader, token string) ([]port.ImageMapping, error) {
	var resp uploadImageResponse
	err := c.api.Do(ctx, remote.Request{
		Method: http.MethodPut,
		Path:   "/agents/image",
		Body:   image,
		Token:  token,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

type uploadChartResponse struct {
	Chart struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"chart"`
	Values map[string]any `json:"values"`
}

func (c *Client) UploadChart(ctx context.Context, chart io.Reader, token string) (*port.ChartUpload, error) {
	var resp uploadChartResponse
	err := c.api.Do(ctx, remote.Request{
		Method: http.MethodPut,
		Path:   "/agents/chart",
		Body:   chart,
		Token:  token,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Chart.Name == "" {
		return nil, fmt.Errorf("deploy-installer: chart upload returned no chart name")
	}
	return &port.ChartUpload{Name: resp.Chart.Name, Version: resp.Chart.Version, Values: resp.Values}, nil
}

type installReleaseBody struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Values  map[string]any `json:"values"`
}

func (c *Client) InstallRelease(ctx context.Context, req port.InstallReleaseRequest, token string) (*port.ReleaseResult, error) {
	values := req.Values
	if values == nil {
		values = map[string]any{}
	}
	var resp port.ReleaseResult
	err := c.api.Do(ctx, remote.Request{
		Method: http.MethodPost,
		Path:   "/agents/release/" + url.PathEscape(req.Name),
		Query: url.Values{
			"namespace":    {req.Namespace},
			"set-registry": {strconv.FormatBool(req.SetRegistry)},
		},
		Body:  installReleaseBody{Name: req.ChartName, Version: req.ChartVersion, Values: values},
		Token: token,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteRelease(ctx context.Context, name, namespace, token string) (*port.ReleaseResult, error) {
	var resp port.ReleaseResult
	err := c.api.Do(ctx, remote.Request{
		Method: http.MethodDelete,
		Path:   "/agents/release/" + url.PathEscape(name),
		Query:  url.Values{"namespace": {namespace}},
		Token:  token,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
