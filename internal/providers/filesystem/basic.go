package filesystem

import (
	"context"
	"encoding/base64"
	"os"
	"unicode/utf8"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
	"go.uber.org/zap"
)

// BasicOps handles reading and deleting single paths
type BasicOps struct {
	*FilesystemOps
}

// GetTools returns basic file operation tool definitions
func (b *BasicOps) GetTools() []types.Tool {
	return []types.Tool{
		{
			ID:          OpRead.String(),
			Name:        "Read File",
			Description: "Read a file on disk or inside an archive; binary content is base64 encoded",
			Parameters: []types.Parameter{
				{Name: "filePath", Type: "string", Description: "File path", Required: true},
			},
			Returns: "object",
		},
		{
			ID:          OpDelete.String(),
			Name:        "Delete",
			Description: "Delete a file, directory or archive entry",
			Parameters: []types.Parameter{
				{Name: "sourcePath", Type: "string", Description: "Path to delete", Required: true},
			},
			Returns: "object",
		},
	}
}

// Read reads file contents
func (b *BasicOps) Read(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	filePath, err := requirePath(params, "read", "filePath")
	if err != nil {
		return nil, err
	}

	desc := b.classify(filePath).AsEntry()

	var data []byte
	if desc.IsArchivePath {
		err = b.withArchive(ctx, desc, func(res *vfs.Resolved) error {
			var err error
			data, err = b.Store.Read(res.FinalArchivePath, res.FinalInternalPath)
			return err
		})
	} else {
		data, err = readNative(desc.Path)
	}
	if err != nil {
		return nil, err
	}

	result := map[string]interface{}{
		"path": filePath,
		"size": len(data),
	}
	for k, v := range describeContent(data) {
		result[k] = v
	}
	return result, nil
}

func readNative(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, errs.Wrap("read", p, err)
	}
	if info.IsDir() {
		return nil, errs.New(errs.NotAFile, "read", p, nil)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errs.Wrap("read", p, err)
	}
	return data, nil
}

// describeContent picks text or base64 output. Detection failures fall
// back to defaults instead of failing the read.
func describeContent(data []byte) map[string]interface{} {
	mime := "application/octet-stream"
	text := false
	if mt := mimetype.Detect(data); mt != nil {
		mime = mt.String()
		for m := mt; m != nil; m = m.Parent() {
			if m.Is("text/plain") {
				text = true
				break
			}
		}
	}
	if len(data) == 0 {
		text = true
	}
	text = text && utf8.Valid(data)

	out := map[string]interface{}{
		"mimeType": mime,
		"binary":   !text,
		"encoding": "",
	}
	if !text {
		out["contentBase64"] = base64.StdEncoding.EncodeToString(data)
		return out
	}

	out["content"] = string(data)
	if len(data) > 0 {
		if best, err := chardet.NewTextDetector().DetectBest(data); err == nil && best != nil {
			out["encoding"] = best.Charset
		}
	}
	return out
}

// Delete removes a path. Archive entries and virtual directories are removed
// from the innermost archive and written back.
func (b *BasicOps) Delete(ctx context.Context, h *task.Handle, params map[string]interface{}) (map[string]interface{}, error) {
	source, err := requirePath(params, "delete", "sourcePath")
	if err != nil {
		return nil, err
	}

	desc := b.classify(source).AsEntry()
	if desc.IsArchivePath {
		removed := 0
		err := b.mutateArchive(ctx, desc, func(res *vfs.Resolved) error {
			var err error
			removed, err = b.Store.Delete(res.FinalArchivePath, res.FinalInternalPath)
			return err
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"deleted": true, "path": source, "entriesRemoved": removed}, nil
	}

	if err := removeNative(desc.Path); err != nil {
		return nil, err
	}
	b.Logger.Info("Deleted", zap.String("path", desc.Path))
	return map[string]interface{}{"deleted": true, "path": desc.Path}, nil
}

func removeNative(p string) error {
	if !exists(p) {
		return errs.New(errs.NotFound, "delete", p, nil)
	}
	if err := os.RemoveAll(p); err != nil {
		return errs.Wrap("delete", p, err)
	}
	return nil
}
