package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name   string
		page   Page
		want   bool
		source string
	}{
		{
			name:   "google sorry page",
			page:   Page{URL: "https://www.google.com/sorry/index?continue=x"},
			want:   true,
			source: "Google",
		},
		{
			name:   "unusual traffic text",
			page:   Page{URL: "https://www.google.com/search?q=x", HTML: "<p>Our systems have detected unusual traffic from your computer network.</p>"},
			want:   true,
			source: "Google",
		},
		{
			name:   "recaptcha",
			page:   Page{HTML: `<div class="g-recaptcha" data-sitekey="k"></div>`},
			want:   true,
			source: "reCAPTCHA",
		},
		{
			name:   "cloudflare title",
			page:   Page{Title: "Just a moment...", HTML: "<html></html>"},
			want:   true,
			source: "Cloudflare",
		},
		{
			name:   "datadome",
			page:   Page{HTML: `<script src="https://ct.captcha-delivery.com/c.js"></script>`},
			want:   true,
			source: "DataDome",
		},
		{
			name:   "perimeterx",
			page:   Page{HTML: `<div id="px-captcha"></div>`},
			want:   true,
			source: "PerimeterX",
		},
		{
			name:   "akamai",
			page:   Page{Title: "Access Denied", HTML: "Reference #18.2f"},
			want:   true,
			source: "Akamai",
		},
		{
			name: "ordinary page",
			page: Page{URL: "https://example.com/sorry-we-moved", Title: "Pet grooming", HTML: "<p>Grooming prices</p>"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, source := Analyze(tt.page, DefaultDetectors())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.source, source)
		})
	}
}

func TestAnalyzeUsesFirstMatch(t *testing.T) {
	page := Page{Title: "Just a moment...", HTML: `<div class="g-recaptcha"></div>`}
	_, source := Analyze(page, DefaultDetectors())
	assert.Equal(t, "reCAPTCHA", source)

	_, source = Analyze(page, []Detector{detectCloudflare, detectCaptcha})
	assert.Equal(t, "Cloudflare", source)

	got, _ := Analyze(page, nil)
	assert.False(t, got)
}
