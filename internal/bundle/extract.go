package bundle

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kweaver-ai/ai-store/internal/domain"
)

const (
	archiveFileName = "package"
	extractDirName  = "extracted"
)

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// errTooLarge 在解压总量超过上限时返回。
var errTooLarge = errors.New("archive exceeds unpacked size limit")

// Workspace 是一次安装调用独占的临时目录。
type Workspace struct {
	Dir  string // 唯一临时目录，Cleanup 删除它
	Root string // 解压根目录
}

// Cleanup 递归删除临时目录，错误只记录日志。
func (w *Workspace) Cleanup() {
	if w == nil || w.Dir == "" {
		return
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		slog.Warn("failed to remove scratch dir", "dir", w.Dir, "error", err)
	}
}

// Extract 把上传的压缩包落盘到 tempRoot 下的唯一目录并完整解压。
// 支持 zip（.dip）和 tar.gz，按文件头判断格式。maxUnpacked<=0 表示不限制。
// 失败时已创建的目录会被清理。
func Extract(ctx context.Context, r io.Reader, tempRoot string, maxUnpacked int64) (*Workspace, error) {
	if err := os.MkdirAll(tempRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create temp root: %w", err)
	}
	dir, err := os.MkdirTemp(tempRoot, "install-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	ws := &Workspace{Dir: dir, Root: filepath.Join(dir, extractDirName)}

	if err := ws.extract(ctx, r, maxUnpacked); err != nil {
		ws.Cleanup()
		return nil, err
	}
	return ws, nil
}

func (w *Workspace) extract(ctx context.Context, r io.Reader, maxUnpacked int64) error {
	archivePath := filepath.Join(w.Dir, archiveFileName)
	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("create archive file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: empty archive", domain.ErrPackageFormat)
	}
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return fmt.Errorf("create extract dir: %w", err)
	}

	head, err := readHead(archivePath, 4)
	if err != nil {
		return err
	}
	lim := &budget{remaining: maxUnpacked}
	switch {
	case bytes.HasPrefix(head, zipMagic):
		err = extractZip(ctx, archivePath, w.Root, lim)
	case bytes.HasPrefix(head, gzipMagic):
		err = extractTarGz(ctx, archivePath, w.Root, lim)
	default:
		return fmt.Errorf("%w: unsupported archive type", domain.ErrPackageFormat)
	}
	if err != nil {
		if errors.Is(err, domain.ErrPackageFormat) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPackageFormat, err)
	}
	return nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive file: %w", err)
	}
	defer f.Close()
	head, err := bufio.NewReader(f).Peek(n)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive header: %w", err)
	}
	return head, nil
}

func extractZip(ctx context.Context, archivePath, dest string, lim *budget) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return err
		}
		mode := zf.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case mode.IsRegular():
			rc, err := zf.Open()
			if err != nil {
				return err
			}
			err = writeFile(target, rc, lim)
			_ = rc.Close()
			if err != nil {
				return err
			}
		default:
			// 符号链接等特殊条目不落盘
			slog.Debug("skipping non-regular archive entry", "name", zf.Name)
		}
	}
	return nil
}

func extractTarGz(ctx context.Context, archivePath, dest string, lim *budget) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, lim); err != nil {
				return err
			}
		default:
			slog.Debug("skipping non-regular archive entry", "name", hdr.Name)
		}
	}
}

// safeJoin 拒绝解压到目标目录之外的条目（zip-slip）。
func safeJoin(dest, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || hasDotDotSegment(name) {
		return "", fmt.Errorf("%w: invalid archive path %q", domain.ErrPackageFormat, name)
	}
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: invalid archive path %q", domain.ErrPackageFormat, name)
	}
	return target, nil
}

func hasDotDotSegment(name string) bool {
	for _, seg := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}

func writeFile(target string, src io.Reader, lim *budget) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := lim.copy(out, src); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// budget 限制解压出的总字节数，防止压缩炸弹。
type budget struct {
	remaining int64 // <=0 表示不限制
	used      int64
}

func (b *budget) copy(dst io.Writer, src io.Reader) (int64, error) {
	if b.remaining <= 0 {
		return io.Copy(dst, src)
	}
	left := b.remaining - b.used
	n, err := io.Copy(dst, io.LimitReader(src, left+1))
	b.used += n
	if err != nil {
		return n, err
	}
	if b.used > b.remaining {
		return n, fmt.Errorf("%w: %v", domain.ErrPackageFormat, errTooLarge)
	}
	return n, nil
}
