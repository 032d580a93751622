package transport

import (
	"os"
	"path/filepath"
	"runtime"
)

// SocketEnvVar overrides socket path discovery when set.
const SocketEnvVar = "HEARTSYNC_BRIDGE_SOCKET"

const socketName = "bridge.sock"

// SocketCandidates returns the well-known helper socket locations in probe
// order: explicit override, env override, per-user locations, per-system
// locations. The helper creates the socket with owner-only permissions, so
// filesystem access control is the only authentication layer.
func SocketCandidates(override string) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	add(override)
	add(os.Getenv(SocketEnvVar))

	home, _ := os.UserHomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			add(filepath.Join(home, "Library", "Application Support", "HeartSync", socketName))
			add(filepath.Join(home, "Library", "Application Support", "HeartSyncBridge", socketName))
		} else {
			stateDir := os.Getenv("XDG_STATE_HOME")
			if stateDir == "" {
				stateDir = filepath.Join(home, ".local", "state")
			}
			add(filepath.Join(stateDir, "heartsync", socketName))
		}
	}

	if runtime.GOOS == "darwin" {
		add(filepath.Join("/Library", "Application Support", "HeartSync", socketName))
	} else {
		add(filepath.Join("/var", "lib", "heartsync", socketName))
	}

	return paths
}
