package filesystem

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
)

const (
	defaultMaxResults = 1000
	searchReportEvery = 200

	// maxContentScan bounds how much of each file is searched for content
	maxContentScan = 16 << 20
)

// SearchOps handles name and content search
type SearchOps struct {
	*FilesystemOps
}

// GetTools returns search operation tool definitions
func (s *SearchOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpSearch.String(),
			Name:        "Search",
			Description: "Find files by name pattern and optional content text, on disk or inside archives",
			Parameters: []types.Parameter{
				{Name: "searchPath", Type: "string", Description: "Directory or archive path to search", Required: true},
				{Name: "filenamePattern", Type: "string", Description: "Glob (e.g. '*.go') or plain substring of the name", Required: true},
				{Name: "contentText", Type: "string", Description: "Text the file must contain", Required: false},
				{Name: "recursive", Type: "boolean", Description: "Descend into subdirectories (default true)", Required: false},
				{Name: "caseSensitive", Type: "boolean", Description: "Case-sensitive matching (default false)", Required: false},
				{Name: "maxResults", Type: "number", Description: "Result cap (default 1000)", Required: false},
			},
			Returns: "object",
		},
	}
}

// SearchMatch is one search hit
type SearchMatch struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	RelativePath string    `json:"relativePath"`
	Size         int64     `json:"size"`
	ModifiedTime time.Time `json:"modifiedTime"`
	IsDirectory  bool      `json:"isDirectory"`
}

// matcher holds the compiled search criteria
type matcher struct {
	pattern       string
	glob          bool
	content       []byte
	caseSensitive bool
}

func newMatcher(pattern, content string, caseSensitive bool) (*matcher, error) {
	m := &matcher{pattern: pattern, caseSensitive: caseSensitive}
	if !caseSensitive {
		m.pattern = strings.ToLower(pattern)
		content = strings.ToLower(content)
	}
	if content != "" {
		m.content = []byte(content)
	}

	m.glob = strings.ContainsAny(pattern, "*?[{")
	if m.glob && !doublestar.ValidatePattern(m.pattern) {
		return nil, errs.Newf(errs.InvalidArgument, "search", "", "invalid filenamePattern %q", pattern)
	}
	return m, nil
}

func (m *matcher) name(base string) bool {
	if !m.caseSensitive {
		base = strings.ToLower(base)
	}
	if !m.glob {
		return strings.Contains(base, m.pattern)
	}
	ok, err := doublestar.Match(m.pattern, base)
	return err == nil && ok
}

// contains streams r looking for the content text
func (m *matcher) contains(r io.Reader) (bool, error) {
	br := bufio.NewReaderSize(io.LimitReader(r, maxContentScan), 64<<10)
	overlap := len(m.content) - 1
	buf := make([]byte, 0, 64<<10+overlap)
	chunk := make([]byte, 64<<10)

	for {
		n, err := br.Read(chunk)
		if n > 0 {
			data := chunk[:n]
			if !m.caseSensitive {
				data = bytes.ToLower(data)
			}
			buf = append(buf, data...)
			if bytes.Contains(buf, m.content) {
				return true, nil
			}
			if len(buf) > overlap {
				buf = append(buf[:0], buf[len(buf)-overlap:]...)
			}
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// Search finds entries below searchPath whose base name matches and, when
// contentText is given, whose content holds it. Results are sorted by path.
func (s *SearchOps) Search(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	searchPath, err := requirePath(params, "search", "searchPath")
	if err != nil {
		return nil, err
	}
	pattern, err := requireString(params, "search", "filenamePattern")
	if err != nil {
		return nil, err
	}
	recursive := optionalBool(params, "recursive", true)
	limit := defaultMaxResults
	if v, ok := params["maxResults"].(float64); ok && v > 0 {
		limit = int(v)
	}

	m, err := newMatcher(pattern, optionalString(params, "contentText"), optionalBool(params, "caseSensitive", false))
	if err != nil {
		return nil, err
	}

	desc := s.classify(searchPath)
	var matches []SearchMatch
	if desc.IsArchivePath {
		err = s.withArchive(ctx, desc, func(res *vfs.Resolved) error {
			matches, err = s.searchArchive(h, m, searchPath, res, recursive)
			return err
		})
	} else {
		matches, err = s.searchNative(h, m, desc.Path, recursive)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].RelativePath < matches[j].RelativePath })
	truncated := len(matches) > limit
	if truncated {
		matches = matches[:limit]
	}
	if matches == nil {
		matches = []SearchMatch{}
	}

	return map[string]interface{}{
		"searchPath": searchPath,
		"pattern":    pattern,
		"matches":    matches,
		"count":      len(matches),
		"truncated":  truncated,
	}, nil
}

func (s *SearchOps) searchNative(h *task.Handle, m *matcher, root string, recursive bool) ([]SearchMatch, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errs.Wrap("search", root, err)
	}
	if !info.IsDir() {
		return nil, errs.New(errs.NotADirectory, "search", root, nil)
	}

	var (
		mu      sync.Mutex
		matches []SearchMatch
		seen    int
		skipped int
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d os.DirEntry, err error) error {
		if cerr := h.Checkpoint("search"); cerr != nil {
			return cerr
		}
		if err != nil {
			mu.Lock()
			skipped++
			mu.Unlock()
			return nil
		}
		if p == root {
			return nil
		}
		if d.IsDir() && !recursive {
			if m.name(d.Name()) && m.content == nil {
				s.appendNative(&mu, &matches, root, p, d)
			}
			return fastwalk.SkipDir
		}

		mu.Lock()
		seen++
		if seen%searchReportEvery == 0 {
			h.Report(seen, 0, p)
		}
		mu.Unlock()

		if !m.name(d.Name()) {
			return nil
		}
		if m.content != nil {
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			ok, err := fileContains(m, p)
			if err != nil {
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			if !ok {
				return nil
			}
		}
		s.appendNative(&mu, &matches, root, p, d)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap("search", root, err)
	}

	s.skipped("search", skipped)
	return matches, nil
}

func (s *SearchOps) appendNative(mu *sync.Mutex, matches *[]SearchMatch, root, p string, d os.DirEntry) {
	info, err := d.Info()
	if err != nil {
		return
	}
	rel, _ := filepath.Rel(root, p)

	mu.Lock()
	*matches = append(*matches, SearchMatch{
		Name:         d.Name(),
		Path:         p,
		RelativePath: filepath.ToSlash(rel),
		Size:         info.Size(),
		ModifiedTime: info.ModTime(),
		IsDirectory:  d.IsDir(),
	})
	mu.Unlock()
}

func fileContains(m *matcher, p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, err
	}
	defer f.Close()
	return m.contains(f)
}

func (s *SearchOps) searchArchive(h *task.Handle, m *matcher, display string, res *vfs.Resolved, recursive bool) ([]SearchMatch, error) {
	var entries []archive.Entry
	if recursive {
		walked, err := s.Store.Walk(res.FinalArchivePath, res.FinalInternalPath)
		if err != nil {
			return nil, err
		}
		entries = walked
	} else {
		listing, err := s.Store.List(res.FinalArchivePath, res.FinalInternalPath)
		if err != nil {
			return nil, err
		}
		entries = append(listing.Directories, listing.Files...)
	}

	prefix := res.FinalInternalPath
	var matches []SearchMatch
	for i, e := range entries {
		if err := h.Checkpoint("search"); err != nil {
			return nil, err
		}
		if (i+1)%searchReportEvery == 0 {
			h.Report(i+1, len(entries), e.Path)
		}
		if !m.name(e.Name) {
			continue
		}
		if m.content != nil {
			if e.IsDir {
				continue
			}
			ok, err := s.entryContains(m, res.FinalArchivePath, e.Path)
			if err != nil || !ok {
				continue
			}
		}

		rel := e.Path
		if prefix != "" {
			rel = strings.TrimPrefix(e.Path, prefix+"/")
		}
		matches = append(matches, SearchMatch{
			Name:         e.Name,
			Path:         strings.TrimSuffix(display, "/") + "/" + rel,
			RelativePath: rel,
			Size:         e.Size,
			ModifiedTime: e.Modified,
			IsDirectory:  e.IsDir,
		})
	}
	return matches, nil
}

func (s *SearchOps) entryContains(m *matcher, archivePath, internal string) (bool, error) {
	rc, err := s.Store.Open(archivePath, internal)
	if err != nil {
		return false, err
	}
	defer rc.Close()
	return m.contains(rc)
}
