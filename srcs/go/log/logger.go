package log

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/lsds/shardcomm/srcs/go/config"
	"github.com/lsds/shardcomm/srcs/go/utils/xterm"
	"k8s.io/klog/v2"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = map[string]Level{
	`DEBUG`: Debug,
	`INFO`:  Info,
	`WARN`:  Warn,
	`ERROR`: Error,
}

func ParseLevel(name string) (Level, bool) {
	l, ok := levelNames[name]
	return l, ok
}

var std = New()

// Logger filters by Level and writes through klog, which adds the
// timestamp and caller location.
type Logger struct {
	sync.Mutex
	level  Level
	prefix string
}

func New() *Logger {
	level, ok := ParseLevel(config.LogLevel)
	if !ok {
		level = Info
	}
	return &Logger{level: level}
}

// depth of the caller of Debugf/Infof/... relative to logf
const callerDepth = 2

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	l.Lock()
	min, prefix := l.level, l.prefix
	l.Unlock()
	if level < min {
		return
	}
	msg := prefix + fmt.Sprintf(format, v...)
	switch level {
	case Debug, Info:
		klog.InfoDepth(callerDepth, msg)
	case Warn:
		klog.WarningDepth(callerDepth, msg)
	default:
		klog.ErrorDepth(callerDepth, xterm.Warn.S(msg))
	}
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.logf(Debug, format, v...)
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.logf(Info, format, v...)
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.logf(Warn, format, v...)
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.logf(Error, format, v...)
}

func (l *Logger) Exitf(format string, v ...interface{}) {
	l.logf(Error, format, v...)
	klog.Flush()
	os.Exit(1)
}

func (l *Logger) SetLevel(level Level) {
	l.Lock()
	defer l.Unlock()
	l.level = level
}

// SetPrefix sets a tag prepended to every message, e.g. the rank of a worker.
func (l *Logger) SetPrefix(prefix string) {
	l.Lock()
	defer l.Unlock()
	l.prefix = prefix
}

// SetOutput redirects klog to w.
func SetOutput(w io.Writer) {
	klog.LogToStderr(false)
	klog.SetOutput(w)
}

// InitFlags registers klog flags (-v, -logtostderr, ...) on fs.
func InitFlags(fs *flag.FlagSet) {
	klog.InitFlags(fs)
}

var (
	Debugf    = std.Debugf
	Infof     = std.Infof
	Warnf     = std.Warnf
	Errorf    = std.Errorf
	Exitf     = std.Exitf
	SetLevel  = std.SetLevel
	SetPrefix = std.SetPrefix
	Flush     = klog.Flush
)
