// Package validate checks request bodies and path fields before they reach
// the filesystem.
package validate

import (
	"fmt"
	"strings"
)

// Request limits
const (
	MaxRequestSize  = 1 << 20 // bytes of one encoded request
	MaxRequestDepth = 8       // nesting of objects and arrays in a request
	MaxPathLength   = 4096
	MaxNameLength   = 255
)

// Size checks that an encoded payload fits within max bytes
func Size(data []byte, max int) error {
	if len(data) > max {
		return fmt.Errorf("payload size %d bytes exceeds maximum %d bytes", len(data), max)
	}
	return nil
}

// Depth checks the nesting depth of a decoded JSON value
func Depth(v interface{}, max int) error {
	return checkDepth(v, 0, max)
}

func checkDepth(v interface{}, depth, max int) error {
	if depth > max {
		return fmt.Errorf("nesting depth exceeds maximum %d", max)
	}

	switch t := v.(type) {
	case map[string]interface{}:
		for _, item := range t {
			if err := checkDepth(item, depth+1, max); err != nil {
				return err
			}
		}
	case []interface{}:
		for _, item := range t {
			if err := checkDepth(item, depth+1, max); err != nil {
				return err
			}
		}
	}
	return nil
}

// Path checks a path-bearing field
func Path(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", field)
	}
	if len(value) > MaxPathLength {
		return fmt.Errorf("%s must not exceed %d bytes", field, MaxPathLength)
	}
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("%s contains a NUL byte", field)
	}
	return nil
}

// Name checks a single path element, such as a rename target
func Name(field, value string) error {
	if err := Path(field, value); err != nil {
		return err
	}
	if len(value) > MaxNameLength {
		return fmt.Errorf("%s must not exceed %d bytes", field, MaxNameLength)
	}
	if strings.ContainsAny(value, `/\`) || value == "." || value == ".." {
		return fmt.Errorf("%s must be a single path element", field)
	}
	return nil
}
