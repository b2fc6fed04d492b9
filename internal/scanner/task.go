package scanner

import (
	"slices"
	"strings"
)

// Source identifies what produced a probe.
type Source int

const (
	SourceWordlist Source = iota
	SourceBrute
	SourceLink
)

func (s Source) String() string {
	switch s {
	case SourceBrute:
		return "brute"
	case SourceLink:
		return "link"
	default:
		return "wordlist"
	}
}

// BlankExtension is the extension name that stands for "test the bare word".
const BlankExtension = ""

// ExtensionSpec is one extension to try under a directory.
type ExtensionSpec struct {
	Name    string
	Enabled bool
}

// ExtensionSet builds the extension list for the start directory.
func ExtensionSet(names []string, blank bool) []ExtensionSpec {
	exts := make([]ExtensionSpec, 0, len(names)+1)
	if blank {
		exts = append(exts, ExtensionSpec{Name: BlankExtension, Enabled: true})
	}
	for _, n := range names {
		n = strings.TrimPrefix(n, ".")
		if n == "" {
			continue
		}
		exts = append(exts, ExtensionSpec{Name: n, Enabled: true})
	}
	return exts
}

func enabledExtensions(exts []ExtensionSpec) int {
	n := 0
	for _, e := range exts {
		if e.Enabled {
			n++
		}
	}
	return n
}

// DirectoryTask is a directory waiting to be expanded into probes. Exts is
// owned by the task: every task gets its own copy.
type DirectoryTask struct {
	Path  string // always starts and ends with "/"
	Exts  []ExtensionSpec
	Depth int
}

func newDirectoryTask(path string, exts []ExtensionSpec, depth int) *DirectoryTask {
	return &DirectoryTask{
		Path:  path,
		Exts:  slices.Clone(exts),
		Depth: depth,
	}
}

// ProbeRequest is one HTTP probe. It is immutable once enqueued and is
// consumed by exactly one worker.
type ProbeRequest struct {
	URL     string
	Path    string // URL path, used for prefix matching on skip
	Method  string
	BaseKey BaseCaseKey
	IsDir   bool
	Item    string // word (plus extension) under test
	Ext     string
	Dir     string // directory the probe belongs to
	Depth   int
	Source  Source
}

// normalizeDir turns any path into the canonical "/a/b/" form.
func normalizeDir(p string) string {
	if p == "" || p == "/" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
