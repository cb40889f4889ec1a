package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"accentabx/internal/batch"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "FAIL"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("=", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{rule, line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderRunSummary formats the per-accent table, totals, and completion banner.
func renderRunSummary(result batch.Result, runLogPath string, interrupted, colorize bool) string {
	var b strings.Builder
	b.WriteString("\n")
	if len(result.Outcomes) > 0 {
		rows := make([][]string, 0, len(result.Outcomes))
		for _, o := range result.Outcomes {
			rows = append(rows, []string{
				o.Category,
				string(o.Status),
				strconv.Itoa(o.ExitCode),
				formatDuration(o.Duration),
				o.Paths.Features,
			})
		}
		b.WriteString(renderTable(
			[]string{"Accent", "Status", "Exit", "Duration", "Features"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		b.WriteString("\n\n")
	}

	for _, line := range renderSectionHeader("PROCESSING SUMMARY", colorize) {
		b.WriteString(line + "\n")
	}
	failed := result.FailedCategories()
	b.WriteString(renderStatusLine("Total accents", statusInfo, strconv.Itoa(len(result.Outcomes)), colorize) + "\n")
	b.WriteString(renderStatusLine("Successfully processed", statusOK, strconv.Itoa(result.Succeeded()), colorize) + "\n")
	failedKind := statusOK
	if len(failed) > 0 {
		failedKind = statusError
	}
	b.WriteString(renderStatusLine("Failed", failedKind, strconv.Itoa(len(failed)), colorize) + "\n")
	if len(failed) > 0 {
		b.WriteString(renderStatusLine("Failed accents", statusError, strings.Join(failed, ", "), colorize) + "\n")
	}
	if runLogPath != "" {
		b.WriteString(renderStatusLine("Run log", statusInfo, runLogPath, colorize) + "\n")
	}
	if interrupted {
		b.WriteString("Run interrupted; remaining accents were not processed.\n")
	} else {
		b.WriteString("All accents have been processed.\n")
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
