// Package deps checks that the external programs scantest shells out to are
// installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"scantest/internal/config"
)

// Requirement defines an external dependency scantest relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the configuration refers to. Only the
// decoder is mandatory; snapshot, feedback and clipboard degrade without theirs.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{Name: "Decoder", Command: cfg.Scanner.DecoderBinary, Description: "Reads barcodes from the camera stream"},
		{Name: "FFmpeg", Command: cfg.Snapshot.FFmpegBinary, Description: "Captures still photos", Optional: true},
	}
	if cfg.Feedback.Enabled && strings.TrimSpace(cfg.Feedback.Command) != "" {
		reqs = append(reqs, Requirement{
			Name:        "Notifier",
			Command:     firstField(cfg.Feedback.Command),
			Description: "Desktop feedback per scan",
			Optional:    true,
		})
	}
	if cmd := strings.TrimSpace(cfg.Clipboard.Command); cmd != "" {
		reqs = append(reqs, Requirement{
			Name:        "Clipboard",
			Command:     firstField(cmd),
			Description: "Copies scan payloads",
			Optional:    true,
		})
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = resolved
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired reports whether any mandatory dependency is unavailable.
func MissingRequired(statuses []Status) bool {
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			return true
		}
	}
	return false
}

func firstField(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
