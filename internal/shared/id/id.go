// Package id generates the identifiers used across the backend.
//
// Task and request ids are prefixed ULIDs so they sort by start time and read
// well in logs (task_01HV...). Temp names are random UUIDs: they only need to
// be unique, never ordered.
package id

import (
	"crypto/rand"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// TaskID identifies a running operation
type TaskID string

// RequestID identifies a transport request
type RequestID string

const (
	TaskPrefix    = "task"
	RequestPrefix = "req"
)

func (id TaskID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }

// ulids hands out strictly increasing ULIDs, even within one millisecond
var ulids = struct {
	sync.Mutex
	entropy *ulid.MonotonicEntropy
}{entropy: ulid.Monotonic(rand.Reader, 0)}

func next(prefix string) string {
	ulids.Lock()
	u := ulid.MustNew(ulid.Timestamp(time.Now()), ulids.entropy)
	ulids.Unlock()
	return prefix + "_" + u.String()
}

// NewTaskID generates a new task ID
func NewTaskID() TaskID {
	return TaskID(next(TaskPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(next(RequestPrefix))
}

// parse strips any prefix and decodes the ULID
func parse(id string) (ulid.ULID, error) {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	return ulid.ParseStrict(id)
}

// IsValid checks if an ID string is a valid ULID, with or without prefix
func IsValid(id string) bool {
	_, err := parse(id)
	return err == nil
}

// Timestamp is the creation time encoded in a (possibly prefixed) ULID
func Timestamp(id string) (time.Time, error) {
	u, err := parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}

// uuidLen is the length of a canonical UUID string
const uuidLen = 36

// TempName returns a collision-free file name that keeps the extension(s) of
// base, so format detection by name still works on the temp copy.
func TempName(base string) string {
	base = filepath.Base(filepath.ToSlash(base))
	if base == "." || base == "/" || base == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "-" + base
}

// IsTempName reports whether name has the shape TempName produces
func IsTempName(name string) bool {
	if len(name) < uuidLen {
		return false
	}
	if _, err := uuid.Parse(name[:uuidLen]); err != nil {
		return false
	}
	return len(name) == uuidLen || name[uuidLen] == '-'
}
