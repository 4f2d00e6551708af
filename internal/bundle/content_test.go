package bundle

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	gcrname "github.com/google/go-containerregistry/pkg/name"
	gcr "github.com/google/go-containerregistry/pkg/v1"
	gcrrand "github.com/google/go-containerregistry/pkg/v1/random"
	gcrtarball "github.com/google/go-containerregistry/pkg/v1/tarball"
	"github.com/kweaver-ai/ai-store/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	tests := map[string]DefinitionFormat{
		"kn.json":   FormatJSON,
		"KN.JSON":   FormatJSON,
		"agent.yml": FormatYAML,
		"a.yaml":    FormatYAML,
		"notes.txt": FormatUnknown,
		"noext":     FormatUnknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, FormatFor(name), name)
	}
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"name":"kn"}`), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "kn"}, v)

	v, err = Decode([]byte("name: agent\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "agent"}, v)

	_, err = Decode([]byte(`{"name":`), FormatJSON)
	require.ErrorIs(t, err, domain.ErrPackageFormat)

	_, err = Decode([]byte(""), FormatYAML)
	require.ErrorIs(t, err, domain.ErrPackageFormat)

	_, err = Decode([]byte("x"), FormatUnknown)
	require.ErrorIs(t, err, domain.ErrPackageFormat)
}

func TestDecode_KeepsLargeIntegers(t *testing.T) {
	v, err := Decode([]byte(`{"id":1234567890123456789,"ratio":1.5}`), FormatJSON)
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1234567890123456789,"ratio":1.5}`, string(out))
	assert.Contains(t, string(out), "1234567890123456789")

	_, err = Decode([]byte(`{"id":1} {"id":2}`), FormatJSON)
	require.ErrorIs(t, err, domain.ErrPackageFormat)
}

func TestDecode_YAMLNonStringKeys(t *testing.T) {
	v, err := Decode([]byte("name: kn\nlevels:\n  1: low\n  2: high\n"), FormatYAML)
	require.NoError(t, err)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"kn","levels":{"1":"low","2":"high"}}`, string(out))

	v, err = Decode([]byte("1: one\n"), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": "one"}, v)
}

func TestDefinitions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"ontologies/b.yaml":    "name: b\n",
		"ontologies/a.json":    `{"name":"a"}`,
		"ontologies/README.md": "ignored",
	})
	pkg := &Package{Dir: root}

	files, err := pkg.Definitions(OntologiesDir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.json", files[0].Name)
	assert.Equal(t, FormatJSON, files[0].Format)
	assert.Equal(t, "b.yaml", files[1].Name)
	assert.Equal(t, FormatYAML, files[1].Format)

	v, err := files[1].Load()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "b"}, v)

	missing, err := pkg.Definitions(AgentsDir)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestImageArchivesAndCharts_Discovery(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"packages/images/b.tar":        "",
		"packages/images/a.tar.gz":     "",
		"packages/images/notes.md":     "",
		"packages/charts/app-0.1.0.tgz": "",
	})
	pkg := &Package{Dir: root}
	m := &domain.Manifest{Release: &domain.ReleaseSpec{Namespace: "dip"}}

	images, err := pkg.ImageArchives(m)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "packages/images/a.tar.gz"),
		filepath.Join(root, "packages/images/b.tar"),
	}, images)

	charts, err := pkg.Charts(m)
	require.NoError(t, err)
	require.Len(t, charts, 1)
	assert.Equal(t, "packages/charts/app-0.1.0.tgz", charts[0].Path)
	assert.Equal(t, "dip", m.ChartNamespace(charts[0]))
}

func TestImageArchivesAndCharts_ManifestWins(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"packages/images/auto.tar": ""})
	pkg := &Package{Dir: root}
	m := &domain.Manifest{
		Images: []string{"custom/img.tar"},
		Charts: []domain.ChartSpec{{Path: "custom/chart.tgz", Namespace: "ns"}},
	}

	images, err := pkg.ImageArchives(m)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "custom/img.tar")}, images)

	charts, err := pkg.Charts(m)
	require.NoError(t, err)
	assert.Equal(t, m.Charts, charts)
}

func TestIcon(t *testing.T) {
	root := t.TempDir()
	pkg := &Package{Dir: root}

	icon, err := pkg.Icon(&domain.Manifest{})
	require.NoError(t, err)
	assert.Nil(t, icon)

	writeTree(t, root, map[string]string{
		"assets/icons/b.png": "B",
		"assets/icons/a.png": "A",
		"logo.svg":           "<svg/>",
	})
	icon, err = pkg.Icon(&domain.Manifest{})
	require.NoError(t, err)
	assert.Equal(t, []byte("A"), icon)

	icon, err = pkg.Icon(&domain.Manifest{Icon: "logo.svg"})
	require.NoError(t, err)
	assert.Equal(t, []byte("<svg/>"), icon)

	icon, err = pkg.Icon(&domain.Manifest{Icon: "missing.png"})
	require.NoError(t, err)
	assert.Nil(t, icon)
}

func TestInspectImage(t *testing.T) {
	img, err := gcrrand.Image(64, 2)
	require.NoError(t, err)
	ref := gcrname.MustParseReference("registry.invalid/itops/api:1.0.0")

	var buf bytes.Buffer
	require.NoError(t, gcrtarball.MultiRefWrite(map[gcrname.Reference]gcr.Image{ref: img}, &buf))
	root := t.TempDir()
	writeTree(t, root, map[string]string{"api.tar": buf.String()})

	info, err := InspectImage(filepath.Join(root, "api.tar"))
	require.NoError(t, err)
	assert.Equal(t, []string{"registry.invalid/itops/api:1.0.0"}, info.RepoTags)
	assert.Equal(t, 2, info.Layers)

	writeTree(t, root, map[string]string{"junk.tar": "not a tarball"})
	_, err = InspectImage(filepath.Join(root, "junk.tar"))
	assert.Error(t, err)
}
