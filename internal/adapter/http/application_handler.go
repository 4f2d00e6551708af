package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/kweaver-ai/ai-store/internal/domain"
)

const uploadField = "file"

// Installer 是安装和卸载入口。
type Installer interface {
	Install(ctx context.Context, archive io.Reader, op domain.Operator, token string) (*domain.Application, error)
	Uninstall(ctx context.Context, id int64, token string) (bool, error)
}

// Applications 是已安装应用的查询与配置入口。
type Applications interface {
	Get(ctx context.Context, id int64) (*domain.Application, error)
	List(ctx context.Context) ([]*domain.Application, error)
	Configure(ctx context.Context, id int64, op domain.Operator) (*domain.Application, error)
	Pin(ctx context.Context, id int64, pinned bool) (*domain.Application, error)
	ListPinned(ctx context.Context) ([]int64, error)
	Ontologies(ctx context.Context, id int64, token string) ([]map[string]any, error)
	Agents(ctx context.Context, id int64, token string) ([]map[string]any, error)
}

type ApplicationHandler struct {
	installer Installer
	apps      Applications
}

func NewApplicationHandler(installer Installer, apps Applications) *ApplicationHandler {
	return &ApplicationHandler{installer: installer, apps: apps}
}

// Install 接收 application/octet-stream 原始包体，或 multipart 表单中的 file 字段。
func (h *ApplicationHandler) Install(w http.ResponseWriter, r *http.Request) {
	archive, err := uploadedArchive(r)
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := h.installer.Install(r.Context(), archive, operatorFrom(r), tokenFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *ApplicationHandler) BasicInfo(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := h.apps.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) Ontologies(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	kns, err := h.apps.Ontologies(r.Context(), id, tokenFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, kns)
}

func (h *ApplicationHandler) Agents(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	agents, err := h.apps.Agents(r.Context(), id, tokenFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (h *ApplicationHandler) Configure(w http.ResponseWriter, r *http.Request) {
	id, err := queryID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	app, err := h.apps.Configure(r.Context(), id, operatorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type pinRequest struct {
	Pinned *bool `json:"pinned"`
}

func (h *ApplicationHandler) Pin(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: decode body: %v", domain.ErrInvalidInput, err))
		return
	}
	if req.Pinned == nil {
		writeError(w, fmt.Errorf("%w: pinned is required", domain.ErrInvalidInput))
		return
	}
	app, err := h.apps.Pin(r.Context(), id, *req.Pinned)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *ApplicationHandler) ListPinned(w http.ResponseWriter, r *http.Request) {
	ids, err := h.apps.ListPinned(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

func (h *ApplicationHandler) Uninstall(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.installer.Uninstall(r.Context(), id, tokenFrom(r)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": id})
}

func uploadedArchive(r *http.Request) (io.Reader, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, nil
	}
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: read multipart body: %v", domain.ErrInvalidInput, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing form field %q", domain.ErrInvalidInput, uploadField)
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: read multipart body: %v", domain.ErrInvalidInput, err)
		}
		if part.FormName() == uploadField {
			return part, nil
		}
		_ = part.Close()
	}
}

func operatorFrom(r *http.Request) domain.Operator {
	return domain.Operator{
		Name: r.Header.Get("X-User-Name"),
		ID:   r.Header.Get("X-User-Id"),
	}
}

func tokenFrom(r *http.Request) string {
	return r.Header.Get("Authorization")
}

func queryID(r *http.Request) (int64, error) {
	return parseID(r.URL.Query().Get("id"))
}

func pathID(r *http.Request) (int64, error) {
	return parseID(chi.URLParam(r, "id"))
}

func parseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}
