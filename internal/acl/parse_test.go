package acl

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collected struct {
	bypass []string
	proxy  []string
	urls   []string
}

func (c *collected) sinks(withURL bool) Sinks {
	s := Sinks{
		Bypass: func(h string) { c.bypass = append(c.bypass, h) },
		Proxy:  func(h string) { c.proxy = append(c.proxy, h) },
	}
	if withURL {
		s.URL = func(u *url.URL) { c.urls = append(c.urls, u.String()) }
	}
	return s
}

func parseString(t *testing.T, text string, defaultBypass bool) (*collected, Result) {
	t.Helper()
	c := &collected{}
	result, err := Parse(context.Background(), strings.NewReader(text), c.sinks(false), defaultBypass, false)
	require.NoError(t, err)
	return c, result
}

func subnetStrings(subnets []Subnet) []string {
	out := make([]string, 0, len(subnets))
	for _, s := range subnets {
		out = append(out, s.String())
	}
	return out
}

func TestParseBypassList(t *testing.T) {
	c, result := parseString(t, `
# comment
   # indented comment
[proxy_all]

[bypass_list]
10.0.0.0/8
  (^|\.)cn$
192.168.0.1
[proxy_list]
(^|\.)google\.com$
8.8.8.0/24
`, false)

	assert.False(t, result.Bypass)
	assert.False(t, result.RemoteDNS)
	assert.Equal(t, []string{`(^|\.)cn$`}, c.bypass)
	assert.Equal(t, []string{`(^|\.)google\.com$`}, c.proxy)
	// 默认代理时只输出直连网段
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.1"}, subnetStrings(result.Subnets))
}

func TestParseBypassAllSelectsProxySubnets(t *testing.T) {
	_, result := parseString(t, `
[bypass_all]
[proxy_list]
8.8.8.0/24
2001:4860::/32
[bypass_list]
10.0.0.0/8
`, false)
	assert.True(t, result.Bypass)
	assert.Equal(t, []string{"8.8.8.0/24", "2001:4860::/32"}, subnetStrings(result.Subnets))
}

func TestParseDefaultInversion(t *testing.T) {
	c, result := parseString(t, "example.com\nfoo.org\n1.1.1.1\n", true)
	assert.True(t, result.Bypass)
	assert.Empty(t, c.bypass)
	assert.Equal(t, []string{"example.com", "foo.org"}, c.proxy)
	assert.Equal(t, []string{"1.1.1.1"}, subnetStrings(result.Subnets))

	c, result = parseString(t, "example.com\n1.1.1.1\n", false)
	assert.False(t, result.Bypass)
	assert.Equal(t, []string{"example.com"}, c.bypass)
	assert.Empty(t, c.proxy)
	assert.Equal(t, []string{"1.1.1.1"}, subnetStrings(result.Subnets))
}

func TestParseOutboundBlockListDiscarded(t *testing.T) {
	c, result := parseString(t, `
[outbound_block_list]
blocked.example.com
127.0.0.0/8
[bypass_list]
allowed.example.com
`, false)
	assert.Equal(t, []string{"allowed.example.com"}, c.bypass)
	assert.Empty(t, c.proxy)
	assert.Empty(t, result.Subnets)
}

func TestParseDirectiveOnly(t *testing.T) {
	for directive, check := range map[string]func(Result){
		"[remote_dns]": func(r Result) { assert.True(t, r.RemoteDNS); assert.False(t, r.Bypass) },
		"[reject_all]": func(r Result) { assert.True(t, r.Bypass); assert.False(t, r.RemoteDNS) },
		"[bypass_all]": func(r Result) { assert.True(t, r.Bypass) },
		"[accept_all]": func(r Result) { assert.False(t, r.Bypass) },
		"[proxy_all]":  func(r Result) { assert.False(t, r.Bypass) },
		"[white_list]": func(r Result) { assert.False(t, r.Bypass) },
		"[black_list]": func(r Result) { assert.False(t, r.Bypass) },
	} {
		c, result := parseString(t, directive+"\n", false)
		assert.Empty(t, c.bypass, directive)
		assert.Empty(t, c.proxy, directive)
		assert.Empty(t, result.Subnets, directive)
		check(result)
	}
}

func TestParseUnrecognizedDirective(t *testing.T) {
	c := &collected{}
	_, err := Parse(context.Background(), strings.NewReader("a.com\n[not_a_real_section]\nb.com\n"), c.sinks(false), false, false)
	require.ErrorIs(t, err, ErrUnrecognizedDirective)

	var de *DirectiveError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Line)
	assert.Equal(t, "[not_a_real_section]", de.Directive)
	assert.NotContains(t, c.bypass, "b.com")
}

func TestParseDirectiveIsCaseSensitive(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("[BYPASS_LIST]\n"), (&collected{}).sinks(false), false, false)
	assert.ErrorIs(t, err, ErrUnrecognizedDirective)
}

func TestParseURLSink(t *testing.T) {
	c := &collected{}
	_, err := Parse(context.Background(), strings.NewReader(`
https://example.com/list.acl
http://mirror.example.org/gfw.acl
example.com
`), c.sinks(true), false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/list.acl", "http://mirror.example.org/gfw.acl"}, c.urls)
	assert.Equal(t, []string{"example.com"}, c.bypass)
}

func TestParseCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader("a.com\n"), (&collected{}).sinks(false), false, false)
	require.ErrorIs(t, err, ErrCanceled)
	assert.ErrorIs(t, err, context.Canceled)
}

type cancelAfterReader struct {
	lines  []string
	cancel context.CancelFunc
	served int
}

func (r *cancelAfterReader) Read(p []byte) (int, error) {
	if r.served == len(r.lines) {
		return 0, io.EOF
	}
	if r.served == 1 {
		r.cancel()
	}
	n := copy(p, r.lines[r.served])
	r.served++
	return n, nil
}

func TestParseCanceledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &collected{}
	reader := &cancelAfterReader{lines: []string{"a.com\n", "b.com\n", "c.com\n"}, cancel: cancel}
	result, err := Parse(ctx, reader, c.sinks(false), false, false)
	require.ErrorIs(t, err, ErrCanceled)
	assert.Empty(t, result.Subnets)
	assert.NotContains(t, c.bypass, "c.com")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestParseReadError(t *testing.T) {
	_, err := Parse(context.Background(), failingReader{}, (&collected{}).sinks(false), false, false)
	var re *ReadError
	require.ErrorAs(t, err, &re)
	assert.EqualError(t, re.Err, "disk on fire")
}
