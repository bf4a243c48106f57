// Package pipelinelog provides a simple way of logging with different
// levels. Time/Date are omitted by default since most deployments run
// under a supervisor that already timestamps stdout (can be turned on
// with SetDateTime).
package pipelinelog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var logDateTime bool

var (
	DebugWriter io.Writer = os.Stderr
	InfoWriter  io.Writer = os.Stderr
	NoteWriter  io.Writer = os.Stderr
	WarnWriter  io.Writer = os.Stderr
	ErrWriter   io.Writer = os.Stderr
	CritWriter  io.Writer = os.Stderr
)

var (
	DebugPrefix string = "[DEBUG]    "
	InfoPrefix  string = "[INFO]     "
	NotePrefix  string = "[NOTICE]   "
	WarnPrefix  string = "[WARNING]  "
	ErrPrefix   string = "[ERROR]    "
	CritPrefix  string = "[CRITICAL] "
)

var (
	debugLog *log.Logger = log.New(DebugWriter, DebugPrefix, 0)
	infoLog  *log.Logger = log.New(InfoWriter, InfoPrefix, 0)
	noteLog  *log.Logger = log.New(NoteWriter, NotePrefix, 0)
	warnLog  *log.Logger = log.New(WarnWriter, WarnPrefix, 0)
	errLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.Lshortfile)
	critLog  *log.Logger = log.New(CritWriter, CritPrefix, log.Lshortfile)

	debugTimeLog *log.Logger = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog  *log.Logger = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	noteTimeLog  *log.Logger = log.New(NoteWriter, NotePrefix, log.LstdFlags)
	warnTimeLog  *log.Logger = log.New(WarnWriter, WarnPrefix, log.LstdFlags)
	errTimeLog   *log.Logger = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Lshortfile)
	critTimeLog  *log.Logger = log.New(CritWriter, CritPrefix, log.LstdFlags|log.Lshortfile)
)

// SetLevel gates the writers below the requested level to io.Discard.
// Accepted values: debug, info, notice, warn, err, crit.
func SetLevel(lvl string) {
	switch lvl {
	case "crit":
		ErrWriter = io.Discard
		fallthrough
	case "err", "fatal":
		WarnWriter = io.Discard
		fallthrough
	case "warn":
		NoteWriter = io.Discard
		fallthrough
	case "notice":
		InfoWriter = io.Discard
		fallthrough
	case "info":
		DebugWriter = io.Discard
	case "debug":
		// nothing discarded
	default:
		fmt.Fprintf(os.Stderr, "pipelinelog: invalid loglevel %q, using debug\n", lvl)
		SetLevel("debug")
	}
	rebind()
}

// SetDateTime toggles the date/time prefix on every emitted line.
func SetDateTime(enabled bool) {
	logDateTime = enabled
}

func rebind() {
	debugLog = log.New(DebugWriter, DebugPrefix, 0)
	infoLog = log.New(InfoWriter, InfoPrefix, 0)
	noteLog = log.New(NoteWriter, NotePrefix, 0)
	warnLog = log.New(WarnWriter, WarnPrefix, 0)
	errLog = log.New(ErrWriter, ErrPrefix, log.Lshortfile)
	critLog = log.New(CritWriter, CritPrefix, log.Lshortfile)

	debugTimeLog = log.New(DebugWriter, DebugPrefix, log.LstdFlags)
	infoTimeLog = log.New(InfoWriter, InfoPrefix, log.LstdFlags)
	noteTimeLog = log.New(NoteWriter, NotePrefix, log.LstdFlags)
	warnTimeLog = log.New(WarnWriter, WarnPrefix, log.LstdFlags)
	errTimeLog = log.New(ErrWriter, ErrPrefix, log.LstdFlags|log.Lshortfile)
	critTimeLog = log.New(CritWriter, CritPrefix, log.LstdFlags|log.Lshortfile)
}

func out(w io.Writer, plain, withTime *log.Logger, v ...interface{}) {
	if w == io.Discard {
		return
	}
	s := fmt.Sprint(v...)
	if logDateTime {
		withTime.Output(3, s)
	} else {
		plain.Output(3, s)
	}
}

func outf(w io.Writer, plain, withTime *log.Logger, format string, v ...interface{}) {
	if w == io.Discard {
		return
	}
	s := fmt.Sprintf(format, v...)
	if logDateTime {
		withTime.Output(3, s)
	} else {
		plain.Output(3, s)
	}
}

func Debug(v ...interface{}) { out(DebugWriter, debugLog, debugTimeLog, v...) }
func Info(v ...interface{})  { out(InfoWriter, infoLog, infoTimeLog, v...) }
func Note(v ...interface{})  { out(NoteWriter, noteLog, noteTimeLog, v...) }
func Warn(v ...interface{})  { out(WarnWriter, warnLog, warnTimeLog, v...) }
func Error(v ...interface{}) { out(ErrWriter, errLog, errTimeLog, v...) }
func Crit(v ...interface{})  { out(CritWriter, critLog, critTimeLog, v...) }

// Fatal logs at error level, then exits the process with status 1.
func Fatal(v ...interface{}) {
	Error(v...)
	os.Exit(1)
}

// Panic logs at error level, then panics. Use for invariant violations
// that indicate a bug rather than a runtime/config error.
func Panic(v ...interface{}) {
	Error(v...)
	panic(fmt.Sprint(v...))
}

func Debugf(format string, v ...interface{}) { outf(DebugWriter, debugLog, debugTimeLog, format, v...) }
func Infof(format string, v ...interface{})  { outf(InfoWriter, infoLog, infoTimeLog, format, v...) }
func Notef(format string, v ...interface{})  { outf(NoteWriter, noteLog, noteTimeLog, format, v...) }
func Warnf(format string, v ...interface{})  { outf(WarnWriter, warnLog, warnTimeLog, format, v...) }
func Errorf(format string, v ...interface{}) { outf(ErrWriter, errLog, errTimeLog, format, v...) }
func Critf(format string, v ...interface{})  { outf(CritWriter, critLog, critTimeLog, format, v...) }

func Fatalf(format string, v ...interface{}) {
	Errorf(format, v...)
	os.Exit(1)
}

func Panicf(format string, v ...interface{}) {
	Errorf(format, v...)
	panic(fmt.Sprintf(format, v...))
}
