// Package edgecache assigns Cache-Control and security headers by request path.
package edgecache

import (
	"net/http"
	"path"
	"strings"
)

// Bucket is a class of responses sharing one header policy.
type Bucket string

const (
	BucketAPI    Bucket = "api"
	BucketStatic Bucket = "static"
	BucketImage  Bucket = "image"
	BucketPage   Bucket = "page"
)

var assetExt = map[string]struct{}{
	".js": {}, ".mjs": {}, ".css": {}, ".map": {}, ".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {},
	".ico": {}, ".svg": {}, ".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".avif": {},
	".json": {}, ".txt": {}, ".webmanifest": {},
}

// Classify maps a request path to its bucket. Checks run in order: api, image,
// static (prefix or asset extension), page.
func Classify(p string) Bucket {
	switch {
	case p == "/api" || strings.HasPrefix(p, "/api/"):
		return BucketAPI
	case strings.HasPrefix(p, "/images/"):
		return BucketImage
	case strings.HasPrefix(p, "/static/"), strings.HasPrefix(p, "/assets/"):
		return BucketStatic
	}
	if _, ok := assetExt[strings.ToLower(path.Ext(p))]; ok {
		return BucketStatic
	}
	return BucketPage
}

var security = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

var policies = map[Bucket]map[string]string{
	BucketAPI: {
		"Cache-Control": "no-store",
		"Pragma":        "no-cache",
	},
	BucketStatic: {
		"Cache-Control": "public, max-age=31536000, immutable",
	},
	BucketImage: {
		"Cache-Control": "public, max-age=86400, stale-while-revalidate=604800",
	},
	BucketPage: {
		"Cache-Control":             "public, max-age=0, must-revalidate",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Permissions-Policy":        "camera=(), microphone=(), geolocation=()",
	},
}

// Headers returns the header set of b, security headers included.
func Headers(b Bucket) http.Header {
	h := make(http.Header, len(security)+4)
	for k, v := range security {
		h.Set(k, v)
	}
	for k, v := range policies[b] {
		h.Set(k, v)
	}
	return h
}

// Middleware sets the headers of the request's bucket before next runs, so
// handlers may still override them.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for k, v := range Headers(Classify(r.URL.Path)) {
			dst[k] = v
		}
		next.ServeHTTP(w, r)
	})
}
