// Package deps locates the external programs the local engine runs.
package deps

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const WhisperCli = "whisper-cli"

var ErrNotInstalled = errors.New("not found in PATH")

// versionTimeout bounds the version probe of a found binary.
const versionTimeout = 2 * time.Second

type Status struct {
	Name      string
	Installed bool
	Path      string
	Version   string // first non-empty line of the version output
}

// Err is nil when the binary was found.
func (s Status) Err() error {
	if s.Installed {
		return nil
	}
	return fmt.Errorf("%s %w", s.Name, ErrNotInstalled)
}

func CheckWhisperCli() Status {
	return Check(WhisperCli, "--version")
}

// Check looks name up in PATH and, if found, runs it with versionFlag.
// A failing or slow version probe still counts as installed.
func Check(name, versionFlag string) Status {
	status := Status{Name: name}

	path, err := exec.LookPath(name)
	if err != nil {
		return status
	}
	status.Installed = true
	status.Path = path

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, versionFlag).CombinedOutput()
	if err != nil && len(output) == 0 {
		return status
	}
	for _, line := range strings.Split(string(output), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			status.Version = line
			break
		}
	}
	return status
}
