// Package opener reveals directories in the platform file manager.
package opener

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"tidy-go/internal/tidy"
)

// Opener starts the platform file manager without waiting for it.
type Opener struct {
	goos  string
	start func(name string, args ...string) error
}

var _ tidy.FolderOpener = (*Opener)(nil)

// New returns an Opener for the running platform.
func New() *Opener {
	return &Opener{goos: runtime.GOOS, start: startDetached}
}

// Open reveals path. It fails if path is not an existing directory or no
// launcher is known for the platform.
func (o *Opener) Open(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("opening folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("opening folder: %s is not a directory", path)
	}
	name, args, ok := commandFor(o.goos, path)
	if !ok {
		return fmt.Errorf("opening folder: no file manager known for %s", o.goos)
	}
	return o.start(name, args...)
}

func commandFor(goos, path string) (string, []string, bool) {
	switch goos {
	case "windows":
		return "explorer.exe", []string{path}, true
	case "darwin":
		return "open", []string{path}, true
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return "xdg-open", []string{path}, true
	default:
		return "", nil, false
	}
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
