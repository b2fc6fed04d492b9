package scanner

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/md5"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/maxvaer/dirsweep/internal/config"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 10 << 20

// Response holds the parsed HTTP response data.
type Response struct {
	StatusCode    int
	Proto         string
	Status        string
	Header        http.Header
	ContentLength int64
	ContentType   string
	Body          []byte
	BodyHash      [16]byte
	WordCount     int
	LineCount     int
	URL           string
	RedirectURL   string
	Duration      time.Duration
}

// Raw renders the response as status line, headers and body, the form that
// fail-case regexes are matched against.
func (r *Response) Raw() string {
	var b strings.Builder
	proto := r.Proto
	if proto == "" {
		proto = "HTTP/1.1"
	}
	status := r.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", r.StatusCode, http.StatusText(r.StatusCode))
	}
	fmt.Fprintf(&b, "%s %s\r\n", proto, status)
	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range r.Header[k] {
			fmt.Fprintf(&b, "%s: %s\r\n", k, v)
		}
	}
	b.WriteString("\r\n")
	b.Write(r.Body)
	return b.String()
}

// Requester wraps an HTTP client for path probing.
type Requester struct {
	client    *http.Client
	headers   []config.Header
	host      string // virtual host override
	userAgent string
	authUser  string
	authPass  string
}

// NewRequester creates a Requester from the provided options.
func NewRequester(opts *config.Options) (*Requester, error) {
	threads := max(opts.Threads, 1)
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		MaxIdleConnsPerHost: threads,
		MaxIdleConns:        threads,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	if !opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = "dirsweep/1.0"
	}

	r := &Requester{
		client:    client,
		userAgent: ua,
		authUser:  opts.AuthUser,
		authPass:  opts.AuthPass,
	}
	for _, h := range opts.Headers {
		if strings.EqualFold(h.Name, "Host") {
			r.host = h.Value
			continue
		}
		r.headers = append(r.headers, h)
	}
	return r, nil
}

// Do sends one request and returns the parsed response. method defaults to
// GET if empty.
func (r *Requester) Do(ctx context.Context, method, rawURL string) (*Response, error) {
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", r.userAgent)
	for _, h := range r.headers {
		req.Header.Set(h.Name, h.Value)
	}
	if r.host != "" {
		req.Host = r.host
	}
	if r.authUser != "" {
		req.SetBasicAuth(r.authUser, r.authPass)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body for %s: %w", rawURL, err)
	}
	if !resp.Uncompressed {
		body = decodeBody(resp.Header.Get("Content-Encoding"), body)
	}
	elapsed := time.Since(start)

	bodyStr := string(body)
	lineCount := strings.Count(bodyStr, "\n") + 1
	if len(body) == 0 {
		lineCount = 0
	}

	result := &Response{
		StatusCode:    resp.StatusCode,
		Proto:         resp.Proto,
		Status:        resp.Status,
		Header:        resp.Header,
		ContentLength: int64(len(body)),
		ContentType:   resp.Header.Get("Content-Type"),
		Body:          body,
		BodyHash:      md5.Sum(body),
		WordCount:     len(strings.Fields(bodyStr)),
		LineCount:     lineCount,
		URL:           rawURL,
		Duration:      elapsed,
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		result.RedirectURL = resp.Header.Get("Location")
	}

	return result, nil
}

// decodeBody undoes a content encoding the transport left in place, which
// happens when the caller sets its own Accept-Encoding header. Undecodable
// bodies are returned unchanged.
func decodeBody(encoding string, body []byte) []byte {
	var rd io.Reader
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "br":
		rd = brotli.NewReader(bytes.NewReader(body))
	case "gzip":
		gz, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return body
		}
		defer gz.Close()
		rd = gz
	case "deflate":
		fl := flate.NewReader(bytes.NewReader(body))
		defer fl.Close()
		rd = fl
	default:
		return body
	}
	decoded, err := io.ReadAll(io.LimitReader(rd, maxBodySize))
	if err != nil {
		return body
	}
	return decoded
}
