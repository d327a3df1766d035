// Package detect recognises bot-protection interstitials in rendered pages.
package detect

import (
	"net/url"
	"strings"
)

// Page is the rendered state of a visited page
type Page struct {
	URL   string
	Title string
	HTML  string
}

// Detector reports whether p is a challenge or block page and which protection served it
type Detector func(p Page) (detected bool, source string)

// DefaultDetectors returns the standard detectors in the order they are tried
func DefaultDetectors() []Detector {
	return []Detector{
		detectGoogleSorry,
		detectCaptcha,
		detectCloudflare,
		detectDataDome,
		detectPerimeterX,
		detectAkamai,
	}
}

// Analyze runs p through detectors and returns the first detection
func Analyze(p Page, detectors []Detector) (bool, string) {
	for _, d := range detectors {
		if detected, source := d(p); detected {
			return true, source
		}
	}
	return false, ""
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// detectGoogleSorry matches Google's unusual-traffic interstitial
func detectGoogleSorry(p Page) (bool, string) {
	if u, err := url.Parse(p.URL); err == nil && strings.Contains(u.Hostname(), "google.") && strings.HasPrefix(u.Path, "/sorry") {
		return true, "Google"
	}
	if containsAny(p.HTML, "Our systems have detected unusual traffic", "detected unusual traffic from your computer network") {
		return true, "Google"
	}
	return false, ""
}

func detectCaptcha(p Page) (bool, string) {
	if containsAny(p.HTML, "www.google.com/recaptcha/api", "g-recaptcha") {
		return true, "reCAPTCHA"
	}
	if containsAny(p.HTML, "hcaptcha.com/1/api.js", "h-captcha") {
		return true, "hCaptcha"
	}
	return false, ""
}

func detectCloudflare(p Page) (bool, string) {
	if containsAny(p.Title, "Just a moment...", "Attention Required! | Cloudflare") {
		return true, "Cloudflare"
	}
	if containsAny(p.HTML, "cf-browser-verification", "cf-turnstile", "challenges.cloudflare.com", "cf_chl_opt") {
		return true, "Cloudflare"
	}
	return false, ""
}

func detectDataDome(p Page) (bool, string) {
	if containsAny(p.HTML, "geo.captcha-delivery.com", "ct.captcha-delivery.com") {
		return true, "DataDome"
	}
	return false, ""
}

func detectPerimeterX(p Page) (bool, string) {
	if containsAny(p.HTML, "client.perimeterx.net", "px-captcha", "_pxBlock") {
		return true, "PerimeterX"
	}
	return false, ""
}

func detectAkamai(p Page) (bool, string) {
	if strings.Contains(p.Title, "Access Denied") && strings.Contains(p.HTML, "Reference #") {
		return true, "Akamai"
	}
	return false, ""
}
