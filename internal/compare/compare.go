// Package compare classifies the differences between two directory trees.
//
// Every relative path in the union of both trees lands in exactly one of
// four sets: only in left, only in right, different (with a reason) or
// identical. Files are compared by size first; equal sizes are always
// confirmed byte for byte, never by modification time.
package compare

import (
	"bytes"
	"io"
	"sort"

	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"go.uber.org/zap"
)

// Reason explains why a path is different
type Reason string

const (
	ReasonType       Reason = "type"
	ReasonSize       Reason = "size"
	ReasonContent    Reason = "content"
	ReasonUnreadable Reason = "unreadable"
)

// Difference is one differing path
type Difference struct {
	Path   string `json:"path"`
	Reason Reason `json:"reason"`
}

// Result is the classification of both trees
type Result struct {
	OnlyInLeft  []string     `json:"onlyInLeft"`
	OnlyInRight []string     `json:"onlyInRight"`
	Different   []Difference `json:"different"`
	Identical   []string     `json:"identical"`
}

const chunkSize = 64 * 1024

// Comparator compares trees
type Comparator struct {
	logger *zap.Logger
}

// New creates a comparator
func New(logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{logger: logger}
}

// Compare classifies every path of left and right. Progress fires once per
// left path with a total of both trees' path counts.
func (c *Comparator) Compare(h *task.Handle, left, right Tree, recursive bool) (*Result, error) {
	leftNodes, err := left.Walk(recursive)
	if err != nil {
		return nil, err
	}
	rightNodes, err := right.Walk(recursive)
	if err != nil {
		return nil, err
	}

	result := &Result{
		OnlyInLeft:  []string{},
		OnlyInRight: []string{},
		Different:   []Difference{},
		Identical:   []string{},
	}

	keys := make([]string, 0, len(leftNodes))
	for k := range leftNodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	total := len(leftNodes) + len(rightNodes)

	for i, key := range keys {
		if err := h.Checkpoint("compare"); err != nil {
			return nil, err
		}
		h.Report(i+1, total, key)

		l := leftNodes[key]
		r, ok := rightNodes[key]
		switch {
		case !ok:
			result.OnlyInLeft = append(result.OnlyInLeft, key)
		case l.IsDir && r.IsDir:
			result.Identical = append(result.Identical, key)
		case l.IsDir != r.IsDir:
			result.Different = append(result.Different, Difference{Path: key, Reason: ReasonType})
		case l.Size != r.Size:
			result.Different = append(result.Different, Difference{Path: key, Reason: ReasonSize})
		default:
			same, err := sameContent(left, right, key)
			switch {
			case err != nil:
				c.logger.Warn("Comparison read failed", zap.String("path", key), zap.Error(err))
				result.Different = append(result.Different, Difference{Path: key, Reason: ReasonUnreadable})
			case same:
				result.Identical = append(result.Identical, key)
			default:
				result.Different = append(result.Different, Difference{Path: key, Reason: ReasonContent})
			}
		}
	}

	for key := range rightNodes {
		if _, ok := leftNodes[key]; !ok {
			result.OnlyInRight = append(result.OnlyInRight, key)
		}
	}
	sort.Strings(result.OnlyInRight)

	return result, nil
}

// sameContent streams both files in lockstep
func sameContent(left, right Tree, rel string) (bool, error) {
	lr, err := left.Open(rel)
	if err != nil {
		return false, err
	}
	defer lr.Close()

	rr, err := right.Open(rel)
	if err != nil {
		return false, err
	}
	defer rr.Close()

	lbuf := make([]byte, chunkSize)
	rbuf := make([]byte, chunkSize)
	for {
		ln, lerr := io.ReadFull(lr, lbuf)
		rn, rerr := io.ReadFull(rr, rbuf)
		if lerr != nil && lerr != io.EOF && lerr != io.ErrUnexpectedEOF {
			return false, lerr
		}
		if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
			return false, rerr
		}
		if ln != rn || !bytes.Equal(lbuf[:ln], rbuf[:rn]) {
			return false, nil
		}
		if lerr != nil || rerr != nil {
			return lerr != nil && rerr != nil, nil
		}
	}
}
