package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/archive"
	"github.com/GriffinCanCode/FileDeck/backend/internal/compare"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/task"
	"github.com/GriffinCanCode/FileDeck/backend/internal/types"
	"github.com/GriffinCanCode/FileDeck/backend/internal/vfs"
	"go.uber.org/zap"
)

// Config configures a Provider
type Config struct {
	// TempDir holds extracted nested archives; defaults to a directory
	// under the OS temp dir
	TempDir string
	// YieldPause is slept between bulk items
	YieldPause time.Duration
	Shares     *vfs.ShareRegistry
	Logger     *zap.Logger
	Metrics    Recorder
	TempHook   vfs.TempHook
}

// Provider dispatches filesystem operations by name
type Provider struct {
	ops *FilesystemOps

	basic     *BasicOps
	directory *DirectoryOps
	transfer  *OperationsOps
	archives  *ArchivesOps
	metadata  *MetadataOps
	search    *SearchOps
	compare   *CompareOps
	system    *SystemOps
}

// New creates a provider
func New(cfg Config) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "filedeck")
	}

	store := archive.NewStore(logger)
	resolver := vfs.NewResolver(store, tempDir, logger)
	if cfg.TempHook != nil {
		resolver.WithTempHook(cfg.TempHook)
	}

	ops := &FilesystemOps{
		Classifier: vfs.NewClassifier(cfg.Shares),
		Resolver:   resolver,
		Store:      store,
		Comparator: compare.New(logger),
		Shares:     cfg.Shares,
		Tasks:      task.NewRegistry(cfg.YieldPause),
		Logger:     logger,
		Metrics:    metrics,
	}

	return &Provider{
		ops:       ops,
		basic:     &BasicOps{FilesystemOps: ops},
		directory: &DirectoryOps{FilesystemOps: ops},
		transfer:  &OperationsOps{FilesystemOps: ops},
		archives:  &ArchivesOps{FilesystemOps: ops},
		metadata:  &MetadataOps{FilesystemOps: ops},
		search:    &SearchOps{FilesystemOps: ops},
		compare:   &CompareOps{FilesystemOps: ops},
		system:    &SystemOps{FilesystemOps: ops},
	}
}

// Tasks exposes the registry of running operations
func (p *Provider) Tasks() *task.Registry {
	return p.ops.Tasks
}

// SweepTemp removes nested archive temp copies left by an earlier run
func (p *Provider) SweepTemp() (int, error) {
	return p.ops.Resolver.Sweep()
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	var tools []types.Tool
	tools = append(tools, p.directory.GetTools()...)
	tools = append(tools, p.basic.GetTools()...)
	tools = append(tools, p.transfer.GetTools()...)
	tools = append(tools, p.compare.GetTools()...)
	tools = append(tools, p.archives.GetTools()...)
	tools = append(tools, p.metadata.GetTools()...)
	tools = append(tools, p.search.GetTools()...)
	tools = append(tools, p.system.GetTools()...)

	caps := make([]string, 0, numOperations)
	for _, op := range Operations() {
		caps = append(caps, op.String())
	}

	return types.Service{
		ID:           "filesystem",
		Name:         "Virtual Filesystem Service",
		Description:  "File operations across native directories, nested archives and network shares",
		Category:     types.CategoryFilesystem,
		Capabilities: caps,
		Tools:        tools,
	}
}

func (p *Provider) handler(op Operation) handler {
	switch op {
	case OpList:
		return p.directory.List
	case OpRead:
		return p.basic.Read
	case OpCopy:
		return p.transfer.Copy
	case OpMove:
		return p.transfer.Move
	case OpRename:
		return p.transfer.Rename
	case OpMkdir:
		return p.directory.Mkdir
	case OpDelete:
		return p.basic.Delete
	case OpCompare:
		return p.compare.Compare
	case OpZip:
		return p.archives.Zip
	case OpDirectorySize:
		return p.metadata.DirectorySize
	case OpSearch:
		return p.search.Search
	case OpCancel:
		return p.system.Cancel
	case OpShares:
		return p.system.ListShares
	default:
		panic(fmt.Sprintf("filesystem: no handler for operation %d", op))
	}
}

// Execute runs one operation. Every outcome, including a panic in a
// handler, is returned as an envelope; the error is always nil.
func (p *Provider) Execute(ctx context.Context, operation string, params map[string]interface{}, appCtx *types.Context) (result *types.Result, _ error) {
	op, ok := ParseOperation(operation)
	if !ok {
		return Failure(operation, errs.Newf(errs.InvalidArgument, operation, "", "unknown operation: %s", operation)), nil
	}
	if params == nil {
		params = map[string]interface{}{}
	}

	h := p.ops.Tasks.Start(ctx, operation, nil)
	defer p.ops.Tasks.Finish(h)

	start := time.Now()
	logger := p.ops.Logger.With(
		zap.String("operation", operation),
		zap.String("task_id", string(h.ID)))
	if appCtx != nil && appCtx.RequestID != "" {
		logger = logger.With(zap.String("request_id", appCtx.RequestID))
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Operation panicked", zap.Any("panic", r), zap.Stack("stack"))
			result = Failure(operation, errs.Newf(errs.Unknown, operation, "", "internal error: %v", r))
		}
		result.TaskID = string(h.ID)
		p.ops.Metrics.RecordOperation(operation, result.Success, time.Since(start))
	}()

	logger.Debug("Executing operation")

	data, err := p.handler(op)(h.Context(), h, params)
	if err != nil {
		logger.Warn("Operation failed",
			zap.String("kind", string(errs.KindOf(err))),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return Failure(operation, err), nil
	}

	if op.Mutating() {
		logger.Info("Operation completed", zap.Duration("duration", time.Since(start)))
	}
	return Success(operation, data), nil
}
