package filesystem

import (
	"context"
	"os"
	"path/filepath"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
)

// ArchivesOps handles archive creation
type ArchivesOps struct {
	*FilesystemOps
}

// GetTools returns archive operation tool definitions
func (a *ArchivesOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpZip.String(),
			Name:        "Create ZIP",
			Description: "Pack files and directories into a zip; unreadable files are skipped and reported",
			Parameters: []types.Parameter{
				{Name: "files", Type: "array", Description: "Native paths to pack", Required: true},
				{Name: "zipFilePath", Type: "string", Description: "Archive to create, on disk or inside another archive", Required: true},
			},
			Returns: "object",
		},
	}
}

// Zip builds zipFilePath from files. A target inside an archive is built in
// the temp dir and stored as an entry of its parent.
func (a *ArchivesOps) Zip(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	files, err := requireStrings(params, "zip", "files")
	if err != nil {
		return nil, err
	}
	zipFilePath, err := requirePath(params, "zip", "zipFilePath")
	if err != nil {
		return nil, err
	}

	inputs := make([]string, 0, len(files))
	for _, f := range files {
		d := a.classify(f)
		if d.IsArchivePath {
			return nil, errs.Newf(errs.InvalidArgument, "zip", f, "archive contents cannot be zip inputs")
		}
		inputs = append(inputs, d.Path)
	}

	target := a.classify(zipFilePath)
	if target.IsArchivePath && !target.NamesArchive() {
		return nil, errs.Newf(errs.InvalidArgument, "zip", zipFilePath, "target is not an archive name")
	}
	entry := target.AsEntry()

	var result *archive.BuildResult
	if !entry.IsArchivePath {
		if archive.DetectFormat(entry.Path) == archive.FormatNone {
			return nil, errs.Newf(errs.InvalidArgument, "zip", zipFilePath, "target is not an archive name")
		}
		result, err = a.Store.Build(h, inputs, entry.Path)
	} else {
		result, err = a.buildInto(ctx, h, inputs, entry)
	}
	if err != nil {
		return nil, err
	}

	a.skipped("zip", len(result.Skipped))
	skipped := result.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	return map[string]interface{}{
		"zipFilePath":      zipFilePath,
		"filesAdded":       result.FilesAdded,
		"totalFiles":       result.TotalFiles,
		"archiveSizeBytes": result.ArchiveSizeBytes,
		"skipped":          skipped,
	}, nil
}

// buildInto builds the archive in a staging file then writes it into the
// archive addressed by entry, through every enclosing level. An existing
// entry is extracted first so the build adds to it.
func (a *ArchivesOps) buildInto(ctx context.Context, h *task.Handle, inputs []string, entry vfs.Descriptor) (*archive.BuildResult, error) {
	if err := os.MkdirAll(a.Resolver.TempDir(), 0o755); err != nil {
		return nil, errs.Wrap("zip", a.Resolver.TempDir(), err)
	}
	staging, err := os.MkdirTemp(a.Resolver.TempDir(), "zip-")
	if err != nil {
		return nil, errs.Wrap("zip", a.Resolver.TempDir(), err)
	}
	defer os.RemoveAll(staging)

	built := filepath.Join(staging, filepath.Base(entry.FinalInternalPath()))
	var result *archive.BuildResult
	err = a.mutateArchive(ctx, entry, func(res *vfs.Resolved) error {
		if existing, err := a.Store.Stat(res.FinalArchivePath, res.FinalInternalPath); err == nil {
			if existing.IsDir {
				return errs.Newf(errs.InvalidArgument, "zip", entry.Display(), "target is a directory")
			}
			if err := a.Store.Extract(res.FinalArchivePath, res.FinalInternalPath, built); err != nil {
				return err
			}
		}

		var err error
		if result, err = a.Store.Build(h, inputs, built); err != nil {
			return err
		}
		return a.Store.Write(res.FinalArchivePath, built, res.FinalInternalPath)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
