package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/resilience"
)

// ProbeTimeout bounds one reachability check of a mount point
const ProbeTimeout = 2 * time.Second

// Share is an SMB/CIFS share mounted by the OS at MountPath
type Share struct {
	Name      string `json:"name"`
	Server    string `json:"server"`
	Share     string `json:"share"`
	MountPath string `json:"mountPath"`
}

// ShareStatus reports whether a share's mount point is currently reachable
type ShareStatus struct {
	Share
	Reachable bool   `json:"reachable"`
	Circuit   string `json:"circuit"`
	Error     string `json:"error,omitempty"`
}

// ShareRegistry maps UNC and smb:// paths onto local mount points
type ShareRegistry struct {
	mu     sync.RWMutex
	shares map[string]Share
	// probes stop stat calls against mounts that keep hanging or failing
	probes map[string]*resilience.Breaker
}

// NewShareRegistry creates a registry holding shares
func NewShareRegistry(shares ...Share) (*ShareRegistry, error) {
	r := &ShareRegistry{
		shares: make(map[string]Share),
		probes: make(map[string]*resilience.Breaker),
	}
	for _, s := range shares {
		if err := r.Add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func shareKey(server, share string) string {
	return strings.ToLower(server) + "/" + strings.ToLower(share)
}

// Add registers a share, replacing any share with the same server and name
func (r *ShareRegistry) Add(s Share) error {
	if s.Server == "" || s.Share == "" {
		return fmt.Errorf("share %q: server and share are required", s.Name)
	}
	if s.MountPath == "" {
		return fmt.Errorf("share %q: mount path is required", s.Name)
	}
	if s.Name == "" {
		s.Name = s.Share
	}
	s.MountPath = filepath.Clean(s.MountPath)

	key := shareKey(s.Server, s.Share)
	r.mu.Lock()
	r.shares[key] = s
	r.probes[key] = resilience.New("share:"+key, resilience.Settings{Trip: 3, Cooldown: 30 * time.Second})
	r.mu.Unlock()
	return nil
}

// List returns every share with its reachability, sorted by name. A mount
// whose probe keeps failing is reported unreachable without touching it
// until its breaker lets a trial probe through.
func (r *ShareRegistry) List() []ShareStatus {
	if r == nil {
		return []ShareStatus{}
	}

	r.mu.RLock()
	out := make([]ShareStatus, 0, len(r.shares))
	probes := make([]*resilience.Breaker, 0, len(r.shares))
	for key, s := range r.shares {
		out = append(out, ShareStatus{Share: s})
		probes = append(probes, r.probes[key])
	}
	r.mu.RUnlock()

	for i := range out {
		mount := out[i].MountPath
		err := probes[i].Call(ProbeTimeout, func() error {
			info, err := os.Stat(mount)
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", mount)
			}
			return nil
		})
		out[i].Reachable = err == nil
		out[i].Circuit = probes[i].State().String()
		if err != nil {
			out[i].Error = err.Error()
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// splitRemote recognizes \\server\share\rest, //server/share/rest and
// smb://server/share/rest.
func splitRemote(p string) (server, share, rest string, ok bool) {
	var tail string
	switch {
	case len(p) >= 6 && strings.EqualFold(p[:6], "smb://"):
		tail = p[6:]
	case strings.HasPrefix(p, `\\`), strings.HasPrefix(p, "//"):
		tail = p[2:]
	default:
		return "", "", "", false
	}

	tail = strings.ReplaceAll(tail, `\`, "/")
	parts := strings.SplitN(tail, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", "", false
	}
	if len(parts) == 3 {
		rest = parts[2]
	}
	return parts[0], parts[1], rest, true
}

// Translate rewrites a remote path onto its share's mount point. Paths that
// are not remote, or name an unknown share, come back unchanged with ok false.
func (r *ShareRegistry) Translate(p string) (local string, share *Share, ok bool) {
	if r == nil {
		return p, nil, false
	}
	server, name, rest, remote := splitRemote(p)
	if !remote {
		return p, nil, false
	}

	r.mu.RLock()
	s, found := r.shares[shareKey(server, name)]
	r.mu.RUnlock()
	if !found {
		return p, nil, false
	}

	return filepath.Join(s.MountPath, filepath.FromSlash(rest)), &s, true
}

// Len returns the number of registered shares
func (r *ShareRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.shares)
}
