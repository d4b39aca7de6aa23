package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Formatter prints observer reports. Writes are serialized because reports
// arrive from observer goroutines.
type Formatter struct {
	Writer    io.Writer
	ErrWriter io.Writer
	Color     bool

	mu sync.Mutex
}

func NewFormatter(out, errOut io.Writer, colorMode bool) *Formatter {
	return &Formatter{Writer: out, ErrWriter: errOut, Color: colorMode}
}

func (f *Formatter) paint(attr color.Attribute, text string) string {
	if !f.Color {
		return text
	}
	return color.New(attr, color.Bold).Sprint(text)
}

func (f *Formatter) line(w io.Writer, format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *Formatter) Started(path string, pid int) {
	f.line(f.Writer, "%s %s pid=%d", f.paint(color.FgCyan, "started"), path, pid)
}

func (f *Formatter) Exited(path string, code int) {
	attr := color.FgGreen
	if code != 0 {
		attr = color.FgYellow
	}
	f.line(f.Writer, "%s %s code=%d", f.paint(attr, "exited"), path, code)
}

func (f *Formatter) Crashed(path, reason string) {
	f.line(f.Writer, "%s %s reason=%q", f.paint(color.FgRed, "crashed"), path, reason)
}

func (f *Formatter) Stopped(path string) {
	f.line(f.Writer, "%s %s", f.paint(color.FgMagenta, "stopped"), path)
}

func (f *Formatter) Changed(path string) {
	f.line(f.Writer, "%s %s %s", time.Now().Format(time.TimeOnly), f.paint(color.FgBlue, "changed"), path)
}

func (f *Formatter) Errorf(format string, args ...interface{}) {
	f.line(f.ErrWriter, "%s "+format, append([]interface{}{f.paint(color.FgRed, "error")}, args...)...)
}

// Raw copies terminal output through unchanged.
func (f *Formatter) Raw(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = f.Writer.Write(data)
}
