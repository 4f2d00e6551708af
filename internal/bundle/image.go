package bundle

import (
	"fmt"
	"io"
	"os"

	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

// ImageInfo 是从 docker save 格式镜像包中读出的信息。
type ImageInfo struct {
	RepoTags []string
	Layers   int
}

// InspectImage 读取镜像包内的 manifest.json，用于上传前记录镜像标签。
// 只识别 docker save 生成的 tar；OCI layout 或压缩过的 tar 会返回错误，调用方应仅记录日志。
func InspectImage(path string) (*ImageInfo, error) {
	opener := func() (io.ReadCloser, error) { return os.Open(path) }
	m, err := tarball.LoadManifest(opener)
	if err != nil {
		return nil, fmt.Errorf("inspect image %s: %w", path, err)
	}
	info := &ImageInfo{}
	for _, d := range m {
		info.RepoTags = append(info.RepoTags, d.RepoTags...)
		info.Layers += len(d.Layers)
	}
	return info, nil
}
