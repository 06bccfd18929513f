package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
)

const (
	spinnerDelay   = 100 * time.Millisecond
	spinnerCharSet = 14
	spinnerColor   = "green"
	ansiRed        = "\x1b[31m"
	ansiGreen      = "\x1b[32m"
	ansiReset      = "\x1b[0m"
)

// Progress renders CLI progress output with optional spinner. Everything goes
// to stderr so stdout only carries command results.
type Progress struct {
	v   bool
	q   bool
	w   io.Writer
	s   *spinner.Spinner
	off bool
}

// New creates a Progress printer configured for verbose/quiet output.
func New(verbose, quiet bool) *Progress {
	return NewWriter(verbose, quiet, os.Stderr)
}

// NewWriter creates a Progress printer writing to w. The spinner only runs
// when neither verbose nor quiet is set.
func NewWriter(verbose, quiet bool, w io.Writer) *Progress {
	p := &Progress{
		v: verbose,
		q: quiet,
		w: w,
	}
	if quiet || verbose {
		return p
	}

	p.s = spinner.New(spinner.CharSets[spinnerCharSet], spinnerDelay, spinner.WithWriter(w))
	_ = p.s.Color(spinnerColor)
	p.s.Start()
	return p
}

// Printf updates the spinner line or prints a log line.
func (p *Progress) Printf(format string, args ...any) {
	if p.spinning() {
		p.s.Suffix = fmt.Sprintf(" "+format, args...)
	}
	if p.v {
		p.println(fmt.Sprintf(format, args...))
	}
}

// PersistentPrintf prints a persistent line that survives spinner updates.
func (p *Progress) PersistentPrintf(format string, args ...any) {
	if p.q && !p.v {
		return
	}
	p.persist(fmt.Sprintf(format, args...))
}

// Okf prints a success message with a colored marker.
func (p *Progress) Okf(format string, args ...any) {
	p.PersistentPrintf("%s✔%s "+format, append([]any{ansiGreen, ansiReset}, args...)...)
}

// Errorf prints an error message with a colored marker. Errors are shown in
// quiet mode too.
func (p *Progress) Errorf(format string, args ...any) {
	p.persist(fmt.Sprintf("%s✗%s "+format, append([]any{ansiRed, ansiReset}, args...)...))
}

// Debugf prints a debug message when verbose mode is enabled.
func (p *Progress) Debugf(format string, args ...any) {
	if p.v {
		p.println(fmt.Sprintf("🚧 Debug: "+format, args...))
	}
}

// DebugSincef prints a debug message with timing info.
func (p *Progress) DebugSincef(start time.Time, format string, args ...any) {
	if p.v {
		p.println(fmt.Sprintf("⏱️ Debug Timing ("+time.Since(start).Round(time.Millisecond).String()+"): "+format, args...))
	}
}

// Write implements io.Writer for log output integration.
func (p *Progress) Write(payload []byte) (int, error) {
	message := strings.TrimRight(string(payload), "\n")
	if message == "" || !p.v && !p.spinning() {
		return len(payload), nil
	}
	p.persist(message)
	return len(payload), nil
}

// Close stops the spinner. It is safe to call more than once.
func (p *Progress) Close() {
	if p.s != nil && !p.off {
		p.s.Stop()
	}
	p.off = true
}

func (p *Progress) spinning() bool {
	return p.s != nil && !p.off && !p.v
}

func (p *Progress) persist(message string) {
	if p.spinning() {
		p.s.Stop()
		p.println(message)
		p.s.Restart()
		return
	}
	p.println(message)
}

func (p *Progress) println(message string) {
	_, _ = fmt.Fprintln(p.w, message)
}
