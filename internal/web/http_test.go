package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/winspan/boomacl/internal/acl"
	"github.com/winspan/boomacl/internal/dns"
	"github.com/winspan/boomacl/internal/storage"
	"github.com/winspan/boomacl/pkg/config"
)

const token = "test-token"

func newTestServer(t *testing.T, route string) (*httptest.Server, *storage.FileStore) {
	t.Helper()
	cfg := config.Default()
	cfg.Persistence.DataDir = t.TempDir()
	cfg.Profile.Route = route
	cfg.Server.AdminToken = token

	store, err := storage.NewFileStore(cfg.GetDataDir())
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)
	svc := dns.NewService(cfg, store, nil, log)

	r := chi.NewRouter()
	BindRoutes(r, svc, dns.NewProber(time.Second, 4), cfg)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, store
}

func do(t *testing.T, method, url, body string, auth bool) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp, out
}

func TestHealthAndAuth(t *testing.T) {
	ts, _ := newTestServer(t, acl.RouteGFWList)

	resp, body := do(t, http.MethodGet, ts.URL+"/api/health", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["loaded"])

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/rules", "", false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/rules", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = do(t, http.MethodGet, ts.URL+"/metrics", "", false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReloadAndQuery(t *testing.T) {
	ts, store := newTestServer(t, acl.RouteGFWList)
	require.NoError(t, store.Write(acl.RouteGFWList, strings.NewReader("[bypass_all]\n[proxy_list]\n(^|\\.)google\\.com$\n")))

	resp, body := do(t, http.MethodPost, ts.URL+"/api/reload", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, acl.RouteGFWList, body["route"])

	resp, body = do(t, http.MethodGet, ts.URL+"/api/decide?host=mail.google.com", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "proxy", body["decision"])

	resp, body = do(t, http.MethodGet, ts.URL+"/api/decide?host=example.cn", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bypass", body["decision"])

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/decide", "", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = do(t, http.MethodGet, ts.URL+"/api/resolver", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("ETag"))
	assert.Equal(t, "127.0.0.1:5450", body["BindAddress"])
	assert.Contains(t, body, "AlternativeDNS")

	resp, body = do(t, http.MethodGet, ts.URL+"/api/rules", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rules := body["rules"].(map[string]any)
	assert.Equal(t, true, rules["bypass"])

	resp, body = do(t, http.MethodGet, ts.URL+"/api/status", "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "file", body["database"])
	assert.NotEmpty(t, body["digest"])
}

func TestPutRules(t *testing.T) {
	ts, store := newTestServer(t, acl.RouteCustomRules)

	resp, _ := do(t, http.MethodPut, ts.URL+"/api/rules", "[bogus]\n", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, store.Exists(acl.RouteCustomRules))

	resp, body := do(t, http.MethodPut, ts.URL+"/api/rules", "[remote_dns]\n[bypass_list]\nlan.example\n", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, acl.RouteCustomRules, body["route"])
	assert.True(t, store.Exists(acl.RouteCustomRules))
}

func TestFetchWithoutURL(t *testing.T) {
	ts, _ := newTestServer(t, acl.RouteCustomRules)
	resp, _ := do(t, http.MethodPost, ts.URL+"/api/fetch", "", true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
