package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	var m Noop
	m.ObserveInstall("done", "succeeded", time.Second)
	m.ObserveUninstall("succeeded", 0)
	m.IncDefinitionSkipped("agent")
	m.ObserveRequest("GET", "/applications", 200, time.Millisecond)
}

func TestProm(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("dip_hub", reg)

	p.ObserveInstall("done", "succeeded", 3*time.Second)
	p.ObserveInstall("charts", "failed", time.Second)
	p.ObserveUninstall("succeeded", 2)
	p.IncDefinitionSkipped("ontology")
	p.IncDefinitionSkipped("ontology")
	p.ObserveRequest("POST", "/applications", 201, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.installs.WithLabelValues("done", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.installs.WithLabelValues("charts", "failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.releasesOrphaned))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.definitionsSkip.WithLabelValues("ontology")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.requests.WithLabelValues("POST", "/applications", "201")))

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.Contains(string(body), "dip_hub_installs_total"))
}
