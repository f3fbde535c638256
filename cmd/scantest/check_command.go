package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scantest/internal/deps"
)

var errMissingDependencies = errors.New("required dependencies missing")

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify external tools (decoder, ffmpeg, notifier, clipboard) are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			colorize := shouldColorize(cmd.OutOrStdout())
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if deps.MissingRequired(statuses) {
				return errMissingDependencies
			}
			return nil
		},
	}
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+2)
	summaryKind, summary := statusOK, "All dependencies available"
	if deps.MissingRequired(statuses) {
		summaryKind, summary = statusError, "Scanning unavailable"
	} else {
		for _, s := range statuses {
			if !s.Available {
				summaryKind, summary = statusWarn, "Optional features degraded"
				break
			}
		}
	}
	lines = append(lines, renderStatusLine("Summary", summaryKind, summary, colorize))

	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}
