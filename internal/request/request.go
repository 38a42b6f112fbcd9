package request

import (
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Request is a unit of crawl work: one URL to fetch, plus the scheduling
// attributes the frontier needs to order it relative to other work.
//
// Requests are created by upstream producers (spiders, seed lists) and
// handed to the Scheduler. Once dequeued they belong to the downloader;
// the scheduler holds no ownership beyond residency in its queues.
type Request struct {
	// URL is the absolute URL to fetch.
	URL string `json:"url"`

	// Method is the HTTP method. Empty means GET.
	Method string `json:"method,omitempty"`

	// Body is the request body, if any. Part of the request identity:
	// two POSTs to the same URL with different bodies are distinct work.
	Body []byte `json:"body,omitempty"`

	// Priority orders requests across buckets: higher values dequeue
	// first. Zero is the normal priority for freshly discovered links.
	Priority int `json:"priority"`

	// DontFilter bypasses duplicate suppression when true. Used for
	// requests that must run even if an identical one was already
	// scheduled (e.g. login refreshes, re-crawls forced by the caller).
	DontFilter bool `json:"dont_filter,omitempty"`

	// Meta carries scheduler- and caller-owned annotations. Never nil
	// after NewRequest; a nil Meta on a hand-built Request behaves as
	// an empty bag for reads.
	Meta *Meta `json:"meta,omitempty"`
}

// NewRequest creates a GET Request for url with an empty Meta bag.
func NewRequest(url string) *Request {
	return &Request{
		URL:    url,
		Method: http.MethodGet,
		Meta:   NewMeta(),
	}
}

// method returns the effective HTTP method, defaulting to GET.
func (r *Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// Fingerprint returns a stable, hex-encoded SHA3-256 hash of the
// request's normalized identity: canonical URL, method, and body.
//
// The fingerprint is the duplicate filter's key. It must be stable
// across processes so that a resumed crawl recognizes work scheduled
// by an earlier run, which is why it hashes only wire-level identity
// and never in-process state such as Meta.
func (r *Request) Fingerprint() string {
	h := sha3.New256()
	h.Write([]byte(CanonicalURL(r.URL)))
	h.Write([]byte{0})
	h.Write([]byte(r.method()))
	h.Write([]byte{0})
	h.Write(r.Body)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalURL normalizes a URL for identity comparison.
//
// Normalization rules:
//  1. Scheme and host are lowercased (case-insensitive per RFC 3986)
//  2. The fragment is dropped (never sent to the server)
//  3. An empty path becomes "/" (http://example.com == http://example.com/)
//
// Query strings are preserved as-is, including parameter order: reordering
// parameters can change server behavior, so we do not sort them.
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		// Unparseable URLs are canonicalized as themselves; they will
		// fail later at the downloader, not here.
		return rawURL
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
