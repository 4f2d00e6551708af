package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"

	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/kweaver-ai/ai-store/internal/port"
)

// --- in-memory repository ---

type memRepo struct {
	mu      sync.Mutex
	nextID  int64
	apps    map[int64]*domain.Application
	creates int
	updates int
	deletes int
	findErr error
}

func newMemRepo(apps ...*domain.Application) *memRepo {
	r := &memRepo{apps: map[int64]*domain.Application{}}
	for _, a := range apps {
		r.nextID++
		if a.ID == 0 {
			a.ID = r.nextID
		}
		cp := *a
		r.apps[a.ID] = &cp
	}
	return r
}

func (r *memRepo) FindByKey(_ context.Context, key string) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, a := range r.apps {
		if a.Key == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memRepo) FindByID(_ context.Context, id int64) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *memRepo) FindAll(_ context.Context) ([]*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Application
	for _, a := range r.apps {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (r *memRepo) FindPinned(ctx context.Context) ([]*domain.Application, error) {
	all, _ := r.FindAll(ctx)
	var out []*domain.Application
	for _, a := range all {
		if a.Pinned {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) Create(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.apps {
		if a.Key == app.Key {
			return domain.ErrAlreadyExists
		}
	}
	r.nextID++
	app.ID = r.nextID
	cp := *app
	r.apps[app.ID] = &cp
	r.creates++
	return nil
}

func (r *memRepo) Update(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[app.ID]; !ok {
		return domain.ErrApplicationNotFound
	}
	cp := *app
	r.apps[app.ID] = &cp
	r.updates++
	return nil
}

func (r *memRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[id]; !ok {
		return domain.ErrApplicationNotFound
	}
	delete(r.apps, id)
	r.deletes++
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.apps)
}

// --- deploy installer ---

type fakeInstaller struct {
	images       []string // 上传的镜像内容
	charts       []string
	installs     []port.InstallReleaseRequest
	deletes      []string
	imageErr     error
	chartErr     error
	installErr   error
	deleteErrFor map[string]error
	chartName    string
	chartValues  map[string]any
}

func (f *fakeInstaller) UploadImage(_ context.Context, image io.Reader, _ string) ([]port.ImageMapping, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	b, _ := io.ReadAll(image)
	f.images = append(f.images, string(b))
	return []port.ImageMapping{{From: "src", To: "dst"}}, nil
}

func (f *fakeInstaller) UploadChart(_ context.Context, chart io.Reader, _ string) (*port.ChartUpload, error) {
	if f.chartErr != nil {
		return nil, f.chartErr
	}
	b, _ := io.ReadAll(chart)
	f.charts = append(f.charts, string(b))
	name := f.chartName
	if name == "" {
		name = "itops"
	}
	return &port.ChartUpload{Name: name, Version: "0.1.0", Values: f.chartValues}, nil
}

func (f *fakeInstaller) InstallRelease(_ context.Context, req port.InstallReleaseRequest, _ string) (*port.ReleaseResult, error) {
	if f.installErr != nil {
		return nil, f.installErr
	}
	f.installs = append(f.installs, req)
	return &port.ReleaseResult{Values: req.Values}, nil
}

func (f *fakeInstaller) DeleteRelease(_ context.Context, name, namespace, _ string) (*port.ReleaseResult, error) {
	f.deletes = append(f.deletes, namespace+"/"+name)
	if err := f.deleteErrFor[name]; err != nil {
		return nil, err
	}
	return &port.ReleaseResult{}, nil
}

// --- ontology / agent services ---

type fakeOntology struct {
	created []any
	failOn  func(def any) bool
	details map[string]map[string]any
}

func (f *fakeOntology) CreateKnowledgeNetwork(_ context.Context, def any, _, _ string) (string, error) {
	if f.failOn != nil && f.failOn(def) {
		return "", errors.New("ontology rejected")
	}
	f.created = append(f.created, def)
	return "kn-" + string(rune('0'+len(f.created))), nil
}

func (f *fakeOntology) GetKnowledgeNetwork(_ context.Context, id, _, _ string) (map[string]any, error) {
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, domain.ErrServiceUnavailable
}

type fakeAgents struct {
	created []any
	details map[string]map[string]any
}

func (f *fakeAgents) CreateAgent(_ context.Context, def any, _, _ string) (*port.AgentCreated, error) {
	f.created = append(f.created, def)
	return &port.AgentCreated{ID: "agent-" + string(rune('0'+len(f.created))), Version: "v0"}, nil
}

func (f *fakeAgents) GetAgent(_ context.Context, id, _, _ string) (map[string]any, error) {
	if d, ok := f.details[id]; ok {
		return d, nil
	}
	return nil, domain.ErrServiceTimeout
}

// --- optional collaborators ---

type fakeNamespaces struct {
	ensured []string
	err     error
}

func (f *fakeNamespaces) EnsureNamespace(_ context.Context, ns string, _ map[string]string) error {
	f.ensured = append(f.ensured, ns)
	return f.err
}

type fakeLocker struct {
	held     map[string]bool
	released []string
}

func (f *fakeLocker) Acquire(_ context.Context, key string) (func(), bool, error) {
	if f.held[key] {
		return nil, false, nil
	}
	return func() { f.released = append(f.released, key) }, true, nil
}
