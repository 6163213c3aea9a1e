package syncrun

import (
	"fmt"
	"io"
	"strings"

	"github.com/temirov/rmmsync/internal/cleanup"
	"github.com/temirov/rmmsync/internal/reconcile"
	"github.com/temirov/rmmsync/internal/vcs"
)

const (
	reportHeaderTemplate         = "Sync summary%s\n"
	reportDryRunSuffixConstant   = " (dry run, nothing was changed)"
	reportNoWritesSuffixConstant = " (file writes disabled, mirror untouched)"
	reportPullTemplate           = "  pull:       %s\n"
	reportWritebackTemplate      = "  writeback:  %d checked, %d matched, %d mismatched, %d updated, %d simulated, %d skipped, %d ambiguous, %d failed%s\n"
	reportWritebackOffSuffix     = " (updates disabled)"
	reportExportTemplate         = "  export:     %d scripts, %d snippets, %d files recorded, %d skipped\n"
	reportExportFailuresTemplate = "              %d failed listings, %d failed detail fetches, %d failed writes\n"
	reportCollisionsTemplate     = "              %d name collisions, content left to the first entity\n"
	reportShellTemplate          = "              %s: %d\n"
	reportCleanupTemplate        = "  cleanup:    %d files removed, %d directories removed, %d kept, %d folders skipped, %d failed\n"
	reportPushTemplate           = "  push:       %s\n"
	reportFailuresTemplate       = "  failures:   %d\n"
	reportUnspecifiedShell       = "unspecified"
	pullStatusResetConstant      = "reset to remote branch"
	pullStatusSkippedConstant    = "skipped"
	pushStatusSkippedConstant    = "skipped"
	pushStatusNothingConstant    = "nothing to commit"
	pushStatusPushedTemplate     = "pushed %s: %s"
	pushStatusFailedTemplate     = "failed: %s"
	reportWriteErrorTemplate     = "failed to write summary: %w"
)

// Summary collects the outcome of every stage of a completed run.
type Summary struct {
	DryRun            bool
	WritebackEnabled  bool
	WriteFilesEnabled bool
	Pulled            bool
	Writeback         reconcile.WritebackSummary
	Export            reconcile.ExportSummary
	Cleanup           cleanup.Summary
	Push              vcs.PushResult
	Pushed            bool
	// PushFailure holds the error text of a recoverable push failure.
	PushFailure string
}

// Failures totals the per-item failures across stages.
func (summary Summary) Failures() int {
	total := summary.Writeback.Failed +
		summary.Export.FailedLists +
		summary.Export.FailedDetails +
		summary.Export.FailedWrites +
		summary.Cleanup.Failures
	if len(summary.PushFailure) > 0 {
		total++
	}
	return total
}

// WriteReport renders the summary as indented text.
func WriteReport(writer io.Writer, summary Summary) error {
	builder := &strings.Builder{}

	dryRunSuffix := ""
	switch {
	case summary.DryRun:
		dryRunSuffix = reportDryRunSuffixConstant
	case !summary.WriteFilesEnabled:
		dryRunSuffix = reportNoWritesSuffixConstant
	}
	fmt.Fprintf(builder, reportHeaderTemplate, dryRunSuffix)

	pullStatus := pullStatusSkippedConstant
	if summary.Pulled {
		pullStatus = pullStatusResetConstant
	}
	fmt.Fprintf(builder, reportPullTemplate, pullStatus)

	writebackSuffix := ""
	if !summary.WritebackEnabled {
		writebackSuffix = reportWritebackOffSuffix
	}
	writeback := summary.Writeback
	fmt.Fprintf(builder, reportWritebackTemplate,
		writeback.Checked, writeback.Matched, writeback.Mismatched, writeback.Updated, writeback.Simulated,
		writeback.Skipped, writeback.Ambiguous, writeback.Failed, writebackSuffix)

	export := summary.Export
	fmt.Fprintf(builder, reportExportTemplate, export.Scripts, export.Snippets, export.Files, export.Skipped)
	if export.FailedLists+export.FailedDetails+export.FailedWrites > 0 {
		fmt.Fprintf(builder, reportExportFailuresTemplate, export.FailedLists, export.FailedDetails, export.FailedWrites)
	}
	if export.Collisions > 0 {
		fmt.Fprintf(builder, reportCollisionsTemplate, export.Collisions)
	}
	for _, shellCount := range export.ShellCounts() {
		label := string(shellCount.Shell)
		if len(label) == 0 {
			label = reportUnspecifiedShell
		}
		fmt.Fprintf(builder, reportShellTemplate, label, shellCount.Count)
	}

	cleanupSummary := summary.Cleanup
	fmt.Fprintf(builder, reportCleanupTemplate,
		cleanupSummary.FilesRemoved, cleanupSummary.DirectoriesRemoved, cleanupSummary.Kept,
		cleanupSummary.SkippedRoots, cleanupSummary.Failures)

	fmt.Fprintf(builder, reportPushTemplate, summary.pushStatus())
	fmt.Fprintf(builder, reportFailuresTemplate, summary.Failures())

	if _, writeError := io.WriteString(writer, builder.String()); writeError != nil {
		return fmt.Errorf(reportWriteErrorTemplate, writeError)
	}
	return nil
}

func (summary Summary) pushStatus() string {
	switch {
	case len(summary.PushFailure) > 0:
		return fmt.Sprintf(pushStatusFailedTemplate, summary.PushFailure)
	case summary.Pushed:
		return fmt.Sprintf(pushStatusPushedTemplate, summary.Push.Branch, summary.Push.CommitMessage)
	case len(summary.Push.Branch) > 0:
		return pushStatusNothingConstant
	default:
		return pushStatusSkippedConstant
	}
}
