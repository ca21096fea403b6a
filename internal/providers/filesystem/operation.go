package filesystem

// Operation is the closed set of dispatchable operations
type Operation int

const (
	OpList Operation = iota
	OpRead
	OpCopy
	OpMove
	OpRename
	OpMkdir
	OpDelete
	OpCompare
	OpZip
	OpDirectorySize
	OpSearch
	OpCancel
	OpShares

	numOperations
)

var operationNames = [numOperations]string{
	OpList:          "list",
	OpRead:          "read",
	OpCopy:          "copy",
	OpMove:          "move",
	OpRename:        "rename",
	OpMkdir:         "mkdir",
	OpDelete:        "delete",
	OpCompare:       "compare",
	OpZip:           "zip",
	OpDirectorySize: "directory-size",
	OpSearch:        "search",
	OpCancel:        "cancel",
	OpShares:        "shares",
}

func (o Operation) String() string {
	if o < 0 || o >= numOperations {
		return "unknown"
	}
	return operationNames[o]
}

// Mutating reports whether the operation changes files
func (o Operation) Mutating() bool {
	switch o {
	case OpCopy, OpMove, OpRename, OpMkdir, OpDelete, OpZip:
		return true
	default:
		return false
	}
}

// ParseOperation maps a wire name onto its operation
func ParseOperation(name string) (Operation, bool) {
	for op, n := range operationNames {
		if n == name {
			return Operation(op), true
		}
	}
	return 0, false
}

// Operations lists every operation in declaration order
func Operations() []Operation {
	ops := make([]Operation, numOperations)
	for i := range ops {
		ops[i] = Operation(i)
	}
	return ops
}
