package scrape

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot response detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
	BlockRateLimit  BlockType = "rate_limited"
)

// shellBodyLimit is the size below which a page may be a JavaScript shell.
const shellBodyLimit = 2000

type signature struct {
	kind    BlockType
	markers []string // all must be present
}

var bodySignatures = []signature{
	{BlockCloudflare, []string{"checking your browser"}},
	{BlockCloudflare, []string{"cf-browser-verification"}},
	{BlockCloudflare, []string{"just a moment", "cloudflare"}},
	{BlockCloudflare, []string{"cloudflare", "challenge"}},
	{BlockCaptcha, []string{"g-recaptcha"}},
	{BlockCaptcha, []string{"h-captcha"}},
	{BlockCaptcha, []string{"captcha", "robot"}},
}

var shellSignatures = []signature{
	{BlockJSShell, []string{"<noscript", "enable javascript"}},
	{BlockJSShell, []string{"<noscript", "requires javascript"}},
	{BlockJSShell, []string{`http-equiv="refresh"`}},
}

// DetectBlock reports whether resp and its body look like an anti-bot
// interstitial rather than real content.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, BlockRateLimit
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusServiceUnavailable {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-mitigated") != "" ||
			strings.EqualFold(resp.Header.Get("Server"), "cloudflare") {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(body))
	if kind := matchSignatures(lower, bodySignatures); kind != BlockNone {
		return true, kind
	}
	if len(body) < shellBodyLimit {
		if kind := matchSignatures(lower, shellSignatures); kind != BlockNone {
			return true, kind
		}
	}
	return false, BlockNone
}

func matchSignatures(lower string, sigs []signature) BlockType {
	for _, sig := range sigs {
		matched := true
		for _, m := range sig.markers {
			if !strings.Contains(lower, m) {
				matched = false
				break
			}
		}
		if matched {
			return sig.kind
		}
	}
	return BlockNone
}
