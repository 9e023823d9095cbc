package admin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/winspan/boomacl/internal/dns"
	"github.com/winspan/boomacl/pkg/config"
)

// maxRulesBody PUT /api/rules 的请求体上限
const maxRulesBody = 8 << 20

type Api struct {
	svc     *dns.Service
	prober  *dns.Prober
	cfg     *config.Config
	token   string
	started time.Time
}

func BindRoutes(r *chi.Mux, svc *dns.Service, prober *dns.Prober, cfg *config.Config) {
	api := &Api{svc: svc, prober: prober, cfg: cfg, token: cfg.Server.AdminToken, started: time.Now()}

	// 中间件
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Timeout(30*time.Second))

	r.Get("/api/health", api.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(pr chi.Router) {
		pr.Use(api.auth)
		pr.Get("/api/status", api.getStatus)
		pr.Get("/api/rules", api.getRules)
		pr.Put("/api/rules", api.putRules)
		pr.Get("/api/resolver", api.getResolver)
		pr.Post("/api/reload", api.reload)
		pr.Post("/api/fetch", api.fetch)
		pr.Get("/api/decide", api.decide)
		pr.Get("/api/probe", api.probe)
	})
}

func (a *Api) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 如果token为空，跳过认证
		if a.token == "" {
			next.ServeHTTP(w, r)
			return
		}

		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") || strings.TrimPrefix(h, "Bearer ") != a.token {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// snapshot 尚未成功加载时返回 503
func (a *Api) snapshot(w http.ResponseWriter) *dns.Snapshot {
	snapshot := a.svc.Snapshot()
	if snapshot == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("规则尚未加载"))
	}
	return snapshot
}

func (a *Api) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "loaded": a.svc.Snapshot() != nil})
}

// 获取系统状态
func (a *Api) getStatus(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"app":      a.cfg.App.Name,
		"version":  a.cfg.App.Version,
		"route":    a.svc.Route(),
		"database": a.cfg.GetDatabaseType(),
		"uptime":   time.Since(a.started).Round(time.Second).String(),
	}
	if snapshot := a.svc.Snapshot(); snapshot != nil {
		data["digest"] = snapshot.Digest
		data["loaded_at"] = snapshot.LoadedAt
		data["files"] = snapshot.Files
	}
	writeJSON(w, http.StatusOK, data)
}

func (a *Api) getRules(w http.ResponseWriter, r *http.Request) {
	snapshot := a.snapshot(w)
	if snapshot == nil {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"route": snapshot.Route, "rules": snapshot.Rules})
}

// 上传 ACL 文本替换当前路由的规则
func (a *Api) putRules(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRulesBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}

	snapshot, err := a.svc.ReplaceRules(r.Context(), data)
	switch {
	case errors.Is(err, dns.ErrInvalidRules), errors.Is(err, dns.ErrNoRuleFile):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *Api) getResolver(w http.ResponseWriter, r *http.Request) {
	snapshot := a.snapshot(w)
	if snapshot == nil {
		return
	}
	w.Header().Set("ETag", strconv.Quote(snapshot.Digest))
	writeJSON(w, http.StatusOK, snapshot.Policy.Config)
}

func (a *Api) reload(w http.ResponseWriter, r *http.Request) {
	snapshot, err := a.svc.Reload(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func (a *Api) fetch(w http.ResponseWriter, r *http.Request) {
	err := a.svc.FetchCustomRules(r.Context())
	switch {
	case errors.Is(err, dns.ErrNoACLURL):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *Api) decide(w http.ResponseWriter, r *http.Request) {
	host := strings.TrimSpace(r.URL.Query().Get("host"))
	if host == "" {
		writeError(w, http.StatusBadRequest, errors.New("缺少 host 参数"))
		return
	}
	if a.snapshot(w) == nil {
		return
	}
	decision, _ := a.svc.Decide(host)
	writeJSON(w, http.StatusOK, map[string]any{"host": host, "decision": decision})
}

func (a *Api) probe(w http.ResponseWriter, r *http.Request) {
	snapshot := a.snapshot(w)
	if snapshot == nil {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "www.example.com"
	}
	results := a.prober.Probe(r.Context(), snapshot.Policy.Config.Servers(), name)
	writeJSON(w, http.StatusOK, map[string]any{"name": name, "results": results})
}
