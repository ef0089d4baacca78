// Package configutil loads layered json5 configuration files.
package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(name string) (string, string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// ReadConfig reads a configuration file. `name` should come with a file
// extension, it is lopped off to produce the local-override filename.
// The following files are merged, higher number wins:
//  1. <name>.<ext>
//  2. <name>.local.<ext>
func ReadConfig[T any](name string) (T, error) {
	var out T
	allNotFound := true

	dirname := filepath.Dir(name)
	prefix, ext := splitExt(filepath.Base(name))

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(defaultFile) > 0 {
		if err := json5.Unmarshal(defaultFile, &out); err != nil {
			return out, err
		}
		allNotFound = false
	}

	localPath := filepath.Join(dirname, fmt.Sprintf("%s.local.%s", prefix, ext))
	localFile, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localFile) > 0 {
		var override T
		if err := json5.Unmarshal(localFile, &override); err != nil {
			return out, err
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Info("merged local config overrides", "local", localPath)
		allNotFound = false
	}

	if allNotFound {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively walks up the filesystem from the working directory until
// it finds a configuration file matching the name.
func ReadRecursively[T any](name string) (T, error) {
	var zero T

	root, err := filepath.Abs("/")
	if err != nil {
		return zero, err
	}
	current, err := os.Getwd()
	if err != nil {
		return zero, err
	}

	for current != root {
		config, err := ReadConfig[T](filepath.Join(current, name))
		if os.IsNotExist(err) {
			current = filepath.Join(current, "..")
			continue
		}
		if err != nil {
			return zero, err
		}
		return config, nil
	}

	return zero, os.ErrNotExist
}
