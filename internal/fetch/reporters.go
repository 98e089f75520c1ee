package fetch

import (
	"fmt"
	"io"
	"strings"

	"github.com/pacfetch/pacfetch/internal/alpm"
)

// Reporter renders download, log, and lifecycle callbacks as the
// progress lines pacman users expect. All output goes to one writer,
// normally stderr, keeping stdout free for results.
type Reporter struct {
	w io.Writer
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// OnDownload renders completed transfers. Signature companions and
// intermediate progress events stay silent.
func (r *Reporter) OnDownload(filename string, ev alpm.DownloadEvent) {
	if strings.HasSuffix(filename, ".sig") {
		return
	}
	if ev.Kind != alpm.DownloadCompleted {
		return
	}
	switch ev.Result {
	case alpm.DownloadSuccess:
		fmt.Fprintf(r.w, "%s downloaded\n", filename)
	case alpm.DownloadUpToDate:
		fmt.Fprintf(r.w, "%s is up to date\n", filename)
	case alpm.DownloadFailed:
		fmt.Fprintf(r.w, "%s failed to download\n", filename)
	}
}

// OnLog renders warnings and errors. Messages arrive newline-terminated
// and are written verbatim after the severity prefix; other levels are
// dropped.
func (r *Reporter) OnLog(level alpm.LogLevel, message string) {
	switch level {
	case alpm.LogWarning:
		fmt.Fprintf(r.w, "warning: %s", message)
	case alpm.LogError:
		fmt.Fprintf(r.w, "error: %s", message)
	}
}

// OnEvent renders lifecycle notifications.
func (r *Reporter) OnEvent(ev alpm.Event) {
	if missing, ok := ev.(alpm.DatabaseMissingEvent); ok {
		fmt.Fprintf(r.w, "database file for %s does not exist (use pacman to download)\n", missing.DBName)
	}
}
