package filesystem

import (
	"context"

	"github.com/GriffinCanCode/FileDeck/backend/internal/compare"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
)

// CompareOps handles directory comparison
type CompareOps struct {
	*FilesystemOps
}

// GetTools returns comparison tool definitions
func (c *CompareOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpCompare.String(),
			Name:        "Compare Directories",
			Description: "Classify paths of two trees as only-left, only-right, different or identical",
			Parameters: []types.Parameter{
				{Name: "leftPath", Type: "string", Description: "Left directory or archive path", Required: true},
				{Name: "rightPath", Type: "string", Description: "Right directory or archive path", Required: true},
				{Name: "recursive", Type: "boolean", Description: "Descend into subdirectories (default false)", Required: false},
			},
			Returns: "object",
		},
	}
}

// Compare compares two trees, either of which may live inside an archive
func (c *CompareOps) Compare(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	leftPath, err := requirePath(params, "compare", "leftPath")
	if err != nil {
		return nil, err
	}
	rightPath, err := requirePath(params, "compare", "rightPath")
	if err != nil {
		return nil, err
	}
	recursive := optionalBool(params, "recursive", false)

	var result *compare.Result
	err = c.withTree(ctx, c.classify(leftPath), func(left compare.Tree) error {
		return c.withTree(ctx, c.classify(rightPath), func(right compare.Tree) error {
			result, err = c.Comparator.Compare(h, left, right, recursive)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"leftPath":    leftPath,
		"rightPath":   rightPath,
		"recursive":   recursive,
		"onlyInLeft":  result.OnlyInLeft,
		"onlyInRight": result.OnlyInRight,
		"different":   result.Different,
		"identical":   result.Identical,
	}, nil
}

// withTree runs fn with a tree for d, holding any nested resolution open
// until fn returns.
func (c *CompareOps) withTree(ctx context.Context, d vfs.Descriptor, fn func(compare.Tree) error) error {
	if !d.IsArchivePath {
		return fn(compare.DiskTree(d.Path))
	}
	return c.withArchive(ctx, d, func(res *vfs.Resolved) error {
		return fn(compare.ArchiveTree(c.Store, res.FinalArchivePath, res.FinalInternalPath))
	})
}
