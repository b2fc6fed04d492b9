package reqparse

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"

	"github.com/maxvaer/dirsweep/internal/config"
)

// ParsedRequest holds the extracted data from a raw HTTP request file.
type ParsedRequest struct {
	Method   string
	URL      string          // scheme + host reconstructed from Host + request line
	StartDir string          // directory of the request path, e.g. "/app/"
	Headers  []config.Header // in file order, Host excluded
}

// Header returns the value of the named header, matched case-insensitively.
func (r *ParsedRequest) Header(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Target is the URL a scan of this request starts from.
func (r *ParsedRequest) Target() string {
	return r.URL + r.StartDir
}

// ParseFile reads a raw HTTP request (e.g. Burp Suite export) and extracts
// the target URL, the directory of the requested path and all headers
// including cookies.
func ParseFile(file string) (*ParsedRequest, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB lines for large cookies

	// Parse request line: GET /path HTTP/1.1
	if !sc.Scan() {
		return nil, fmt.Errorf("request file is empty")
	}
	requestLine := strings.TrimSpace(sc.Text())
	parts := strings.SplitN(requestLine, " ", 3)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid request line: %q", requestLine)
	}
	method := parts[0]
	requestPath := parts[1]

	// Parse headers until blank line.
	var headers []config.Header
	host := ""
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, value = strings.TrimSpace(name), strings.TrimSpace(value)
		if strings.EqualFold(name, "Host") {
			host = value
			continue
		}
		headers = append(headers, config.Header{Name: name, Value: value})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}

	// Some proxies put the absolute URL in the request line.
	if strings.HasPrefix(requestPath, "http://") || strings.HasPrefix(requestPath, "https://") {
		u, err := url.Parse(requestPath)
		if err != nil {
			return nil, fmt.Errorf("invalid URL in request line: %w", err)
		}
		return &ParsedRequest{
			Method:   method,
			URL:      u.Scheme + "://" + u.Host,
			StartDir: startDir(u.Path),
			Headers:  headers,
		}, nil
	}

	if host == "" {
		return nil, fmt.Errorf("request file missing Host header")
	}

	// HTTP/2 in Burp exports usually means HTTPS; for HTTP/1.x only an
	// explicit port 80 selects plain http.
	scheme := "https"
	if len(parts) >= 3 && strings.HasPrefix(strings.ToUpper(parts[2]), "HTTP/1") && strings.HasSuffix(host, ":80") {
		scheme = "http"
	}

	reqURL, err := url.Parse(requestPath)
	if err != nil {
		return nil, fmt.Errorf("invalid request path %q: %w", requestPath, err)
	}
	return &ParsedRequest{
		Method:   method,
		URL:      scheme + "://" + host,
		StartDir: startDir(reqURL.Path),
		Headers:  headers,
	}, nil
}

// startDir returns the directory part of a request path: "/app/login" and
// "/app/" both give "/app/".
func startDir(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if strings.HasSuffix(p, "/") {
		return path.Clean(p) + "/"
	}
	dir := path.Dir(path.Clean(p))
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}
