// Package bypass recognizes bot-protection challenge pages so that a
// challenge is never mistaken for page content.
package bypass

import (
	"bytes"
	"net/http"
	"slices"
	"strings"
)

// Response is the part of an HTTP response the detectors inspect.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Signature describes how one bot-protection vendor's challenge looks. A
// response matches when its status is one of Statuses and at least one of
// the header, server or body markers is present. BodyAllOf markers must all
// be present together to count as a single marker.
type Signature struct {
	Vendor       string
	Statuses     []int
	ServerTokens []string
	Headers      []string
	BodyAnyOf    []string
	BodyAllOf    []string
}

// DefaultSignatures covers the common vendors seen on e-commerce sites.
var DefaultSignatures = []Signature{
	{
		Vendor:       "Cloudflare",
		Statuses:     []int{http.StatusForbidden, http.StatusServiceUnavailable},
		ServerTokens: []string{"cloudflare"},
		BodyAnyOf: []string{
			"cf-browser-verification",
			"cloudflare-nginx",
			"cf-turnstile",
			"Attention Required! | Cloudflare",
		},
	},
	{
		Vendor:       "Akamai",
		Statuses:     []int{http.StatusForbidden},
		ServerTokens: []string{"akamai"},
		BodyAllOf:    []string{"Reference #", "Access Denied"},
	},
	{
		Vendor:       "DataDome",
		Statuses:     []int{http.StatusForbidden},
		ServerTokens: []string{"datadome"},
		Headers:      []string{"X-DataDome", "X-DataDome-Response"},
		BodyAnyOf:    []string{"geo.captcha-delivery.com", "datadome"},
	},
	{
		Vendor:    "PerimeterX",
		Statuses:  []int{http.StatusForbidden},
		Headers:   []string{"X-Px-Captcha"},
		BodyAnyOf: []string{"client.perimeterx.net", "px-captcha", "_pxBlock"},
	},
	{
		Vendor:    "Imperva",
		Statuses:  []int{http.StatusForbidden},
		Headers:   []string{"X-Iinfo"},
		BodyAnyOf: []string{"_Incapsula_Resource", "Incapsula incident ID"},
	},
}

// Match reports whether r looks like this vendor's challenge.
func (s Signature) Match(r Response) bool {
	if !slices.Contains(s.Statuses, r.StatusCode) {
		return false
	}

	server := strings.ToLower(r.Headers.Get("Server"))
	for _, tok := range s.ServerTokens {
		if strings.Contains(server, tok) {
			return true
		}
	}
	for _, h := range s.Headers {
		if r.Headers.Get(h) != "" {
			return true
		}
	}
	for _, m := range s.BodyAnyOf {
		if bytes.Contains(r.Body, []byte(m)) {
			return true
		}
	}
	if len(s.BodyAllOf) > 0 {
		for _, m := range s.BodyAllOf {
			if !bytes.Contains(r.Body, []byte(m)) {
				return false
			}
		}
		return true
	}
	return false
}

// Detect returns the vendor of the first signature r matches.
func Detect(r Response, sigs []Signature) (vendor string, detected bool) {
	for _, s := range sigs {
		if s.Match(r) {
			return s.Vendor, true
		}
	}
	return "", false
}
