package transport

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

// ErrHelperNotFound means no helper install was found at any well-known
// location. Callers surface this as actionable "install missing" guidance
// rather than retrying silently.
var ErrHelperNotFound = errors.New("helper not installed at any known location")

// Launcher starts the HeartSync helper application when the socket is
// absent. It uses the platform's "start this installed application"
// mechanism against a small set of well-known install locations.
type Launcher struct {
	// Paths overrides the default install locations when non-empty.
	Paths []string
	Log   *logrus.Logger
}

// HelperCandidates returns the default helper install locations.
func HelperCandidates() []string {
	if runtime.GOOS == "darwin" {
		home, _ := os.UserHomeDir()
		paths := []string{"/Applications/HeartSync Bridge.app"}
		if home != "" {
			paths = append([]string{filepath.Join(home, "Applications", "HeartSync Bridge.app")}, paths...)
		}
		return paths
	}

	var paths []string
	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".local", "bin", "heartsync-bridge"))
	}
	return append(paths, "/usr/local/bin/heartsync-bridge", "/usr/bin/heartsync-bridge")
}

// Launch starts the first helper found. The helper runs detached; the caller
// goes back to probing the socket afterwards.
func (l *Launcher) Launch() error {
	log := l.Log
	if log == nil {
		log = logrus.New()
	}

	paths := l.Paths
	if len(paths) == 0 {
		paths = HelperCandidates()
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		cmd := launchCommand(path)
		if err := cmd.Start(); err != nil {
			log.WithError(err).WithField("helper", path).Warn("Helper launch failed")
			continue
		}
		// Detach: the helper owns its own lifetime.
		go func() { _ = cmd.Wait() }()

		log.WithField("helper", path).Info("Launch request sent for HeartSync helper")
		return nil
	}

	return fmt.Errorf("%w: looked in %v", ErrHelperNotFound, paths)
}

func launchCommand(path string) *exec.Cmd {
	if runtime.GOOS == "darwin" {
		return exec.Command("open", "-a", path, "--background")
	}
	return exec.Command(path)
}
