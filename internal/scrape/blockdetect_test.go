package scrape

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		headers map[string]string
		body    string
		blocked bool
		kind    BlockType
	}{
		{name: "clean page", status: 200, body: "<html><body>" + strings.Repeat("laptop ", 50) + "</body></html>"},
		{name: "rate limited", status: 429, blocked: true, kind: BlockRateLimit},
		{name: "cf-ray 403", status: 403, headers: map[string]string{"cf-ray": "123"}, blocked: true, kind: BlockCloudflare},
		{name: "cloudflare server 503", status: 503, headers: map[string]string{"Server": "Cloudflare"}, blocked: true, kind: BlockCloudflare},
		{name: "plain 403", status: 403, body: "forbidden"},
		{name: "checking browser", status: 200, body: "Checking your browser before accessing", blocked: true, kind: BlockCloudflare},
		{name: "just a moment", status: 200, body: "<title>Just a moment...</title> cloudflare", blocked: true, kind: BlockCloudflare},
		{name: "recaptcha", status: 200, body: `<div class="g-recaptcha"></div>`, blocked: true, kind: BlockCaptcha},
		{name: "captcha robot", status: 200, body: "Solve this CAPTCHA to prove you are not a robot", blocked: true, kind: BlockCaptcha},
		{name: "js shell", status: 200, body: "<noscript>Please enable JavaScript</noscript>", blocked: true, kind: BlockJSShell},
		{name: "meta refresh", status: 200, body: `<meta http-equiv="refresh" content="0;url=/x">`, blocked: true, kind: BlockJSShell},
		{name: "large page with noscript", status: 200, body: "<noscript>enable javascript</noscript>" + strings.Repeat("x", shellBodyLimit)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{}}
			for k, v := range tt.headers {
				resp.Header.Set(k, v)
			}
			blocked, kind := DetectBlock(resp, []byte(tt.body))
			assert.Equal(t, tt.blocked, blocked)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestDetectBlock_NilResponse(t *testing.T) {
	t.Parallel()

	blocked, kind := DetectBlock(nil, []byte("captcha"))
	assert.False(t, blocked)
	assert.Equal(t, BlockNone, kind)
}
