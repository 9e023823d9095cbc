package acl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultUserAgent = "BoomACL/1.0"
	defaultMaxBytes  = 8 << 20
)

// Fetcher 拉取远程规则文件
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

// FetcherFunc 函数适配 Fetcher
type FetcherFunc func(ctx context.Context, rawURL string) (io.ReadCloser, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	return f(ctx, rawURL)
}

// FetchStore 规则文件存储，Write 需要保证原子提交
type FetchStore interface {
	Exists(id string) bool
	Write(id string, r io.Reader) error
}

// EnsureFetched 规则文件已存在时直接返回；否则拉取 rawURL 并完整缓冲后写入。
// 拉取失败原样向上返回，不会留下半截文件。
func EnsureFetched(ctx context.Context, store FetchStore, id, rawURL string, fetcher Fetcher) error {
	if store.Exists(id) {
		return nil
	}
	entry := log.WithField("id", id).WithField("url", rawURL)
	entry.Info("拉取规则文件")

	body, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		fetchTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("拉取规则文件 %s 失败: %w", id, err)
	}
	defer body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		fetchTotal.WithLabelValues("fetch_error").Inc()
		return fmt.Errorf("读取规则文件 %s 失败: %w", id, err)
	}
	if err := store.Write(id, &buf); err != nil {
		fetchTotal.WithLabelValues("store_error").Inc()
		return fmt.Errorf("保存规则文件 %s 失败: %w", id, err)
	}
	fetchTotal.WithLabelValues("success").Inc()
	entry.Infof("规则文件已保存，共 %d 字节", buf.Len())
	return nil
}

// StatusError 远端返回非 2xx
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// HTTPFetcher 基于 net/http 的 Fetcher
type HTTPFetcher struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
}

func NewHTTPFetcher(timeout time.Duration, userAgent string, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		MaxBytes:  maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	userAgent := f.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &limitedBody{
		Reader: io.LimitReader(resp.Body, maxBytes+1),
		closer: resp.Body,
		max:    maxBytes,
	}, nil
}

// limitedBody 超出上限时返回错误，避免把截断内容当作完整文件提交
type limitedBody struct {
	io.Reader
	closer io.Closer
	max    int64
	n      int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	b.n += int64(n)
	if b.n > b.max {
		return n, fmt.Errorf("规则文件超过 %d 字节上限", b.max)
	}
	return n, err
}

func (b *limitedBody) Close() error { return b.closer.Close() }
