// Package filesystem implements the operation dispatcher of the virtual
// filesystem.
//
// Operations are grouped by concern:
//   - directory: list, mkdir
//   - basic: read, delete
//   - operations: copy, move, rename
//   - compare: directory comparison
//   - archives: zip
//   - metadata: directory-size
//   - search: name and content search
//   - system: cancel, shares
//
// Every path argument may address a native path, a path inside an archive
// or a path crossing nested archives. Handlers classify their paths, resolve
// nested levels to temp copies, and write edits back through each level
// before releasing the copies.
//
// Each call runs under its own task handle. Progress tagged with the task ID
// reaches any listener attached to the request context, and the cancel
// operation stops a running task at its next checkpoint.
//
// Example Usage:
//
//	p := filesystem.New(filesystem.Config{TempDir: dir})
//	result, _ := p.Execute(ctx, "list", map[string]interface{}{"folderPath": "/data/a.zip"}, nil)
package filesystem
