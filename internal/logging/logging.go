// Package logging builds the logger shared by the rdgen packages and prints
// the final status lines of a run.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out. Verbose enables debug output,
// including structured fields.
func New(out io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&Formatter{Fields: verbose})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// Formatter prints one line per entry: the bare message for info entries and
// a colored level prefix for everything else.
type Formatter struct {
	// Fields appends the entry fields as key=value pairs.
	Fields bool
}

var levelPrefix = map[logrus.Level]func(format string, a ...any) string{
	logrus.PanicLevel: color.RedString,
	logrus.FatalLevel: color.RedString,
	logrus.ErrorLevel: color.RedString,
	logrus.WarnLevel:  color.YellowString,
	logrus.DebugLevel: color.HiBlackString,
	logrus.TraceLevel: color.HiBlackString,
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if prefix, ok := levelPrefix[entry.Level]; ok {
		b.WriteString(prefix("%s: ", entry.Level))
	}
	b.WriteString(entry.Message)

	if f.Fields && len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Fatal prints the terminating message for err.
func Fatal(w io.Writer, err error) {
	fmt.Fprintln(w, color.New(color.FgRed, color.Bold).Sprintf("! %v; Terminating.", err))
}

// Success prints a highlighted completion message.
func Success(w io.Writer, format string, a ...any) {
	fmt.Fprintln(w, color.GreenString(format, a...))
}
