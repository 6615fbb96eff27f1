package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
)

var (
	definitionsOnce sync.Once
	definitionsDir  string
	definitionsErr  error
)

// definitionsRoot locates the bundled chip/peripheral definition files
// used by --include-definitions. The RVASM_DEFINITIONS_DIR environment
// variable overrides the search; otherwise the directory is looked up
// relative to the source tree and then the executable.
func definitionsRoot() (string, error) {
	definitionsOnce.Do(func() {
		if env := os.Getenv("RVASM_DEFINITIONS_DIR"); env != "" {
			definitionsDir = env
			return
		}
		candidates := []string{
			filepath.Join(repoDirFromSource(), "..", "..", "definitions"),
			filepath.Join(executableDir(), "definitions"),
		}
		for _, candidate := range candidates {
			if candidate == "" {
				continue
			}
			if info, err := os.Stat(candidate); err == nil && info.IsDir() {
				definitionsDir = candidate
				return
			}
		}
		definitionsErr = fmt.Errorf("definitions directory not found; set RVASM_DEFINITIONS_DIR")
	})
	if definitionsDir != "" {
		return definitionsDir, nil
	}
	return "", definitionsErr
}

func repoDirFromSource() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return filepath.Dir(file)
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(exe)
}
