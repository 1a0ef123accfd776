package domain

import (
	"errors"
	"path"
	"strings"
)

var ErrObjectNotFound = errors.New("configuration object not found")

// IsYAMLDocument reports whether a configuration object key names a YAML
// document. Everything else is read as JSON.
func IsYAMLDocument(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
