package logx

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string { return l.zap().String() }

func (l Level) zap() zapcore.Level {
	switch l {
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

// ParseLevel accepts debug, info, warn(ing) and error, case-insensitively.
func ParseLevel(s string) (Level, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "warning" {
		norm = "warn"
	}
	zl, err := zapcore.ParseLevel(norm)
	if err != nil || norm == "" {
		return LevelWarn, fmt.Errorf("unknown log level %q", s)
	}
	switch {
	case zl <= zapcore.DebugLevel:
		return LevelDebug, nil
	case zl == zapcore.InfoLevel:
		return LevelInfo, nil
	case zl == zapcore.WarnLevel:
		return LevelWarn, nil
	default:
		return LevelError, nil
	}
}

const truncateLimit = 2 * 1024

var (
	mu      sync.RWMutex
	level   = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	secrets []string
	verbose bool
	sugar   = build(io.Discard)
)

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		MessageKey:     "msg",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
}

func newCore(w io.Writer) zapcore.Core {
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), level)
	return &scrubCore{Core: core}
}

func build(w io.Writer) *zap.SugaredLogger {
	return zap.New(newCore(w)).Sugar()
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// SetOutput sets the destination for logs.
func SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	l := build(w)
	mu.Lock()
	sugar = l
	mu.Unlock()
}

// SetMinLevel sets the minimum level to emit.
func SetMinLevel(l Level) { level.SetLevel(l.zap()) }

// SetVerbose toggles verbose output (no truncation of large fields/messages).
func SetVerbose(v bool) { mu.Lock(); verbose = v; mu.Unlock() }

// Verbose returns whether verbose output is enabled.
func Verbose() bool { mu.RLock(); defer mu.RUnlock(); return verbose }

// RegisterSecret adds a string to be redacted in outputs.
func RegisterSecret(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	mu.Lock()
	secrets = append(secrets, s)
	mu.Unlock()
}

// Sync flushes buffered entries.
func Sync() error { return current().Sync() }

// StdlogWriter turns each written line into a JSON entry at a fixed level.
// Bubble Tea's debug log and the standard log package can be pointed at it.
func StdlogWriter(lvl Level, w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	return &stdlogWriter{level: lvl.zap(), log: zap.New(newCore(w))}
}

type stdlogWriter struct {
	level zapcore.Level
	log   *zap.Logger
}

func (sw *stdlogWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte("\n")) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		sw.log.Log(sw.level, string(line))
	}
	return len(p), nil
}

func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Debugw logs msg with alternating key/value pairs.
func Debugw(msg string, kv ...any) { current().Debugw(msg, kv...) }
func Infow(msg string, kv ...any)  { current().Infow(msg, kv...) }
func Warnw(msg string, kv ...any)  { current().Warnw(msg, kv...) }

// scrubCore redacts registered secrets and truncates long strings before
// the entry reaches the encoder.
type scrubCore struct {
	zapcore.Core
}

func (c *scrubCore) With(fields []zapcore.Field) zapcore.Core {
	return &scrubCore{Core: c.Core.With(scrubFields(fields))}
}

func (c *scrubCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *scrubCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	ent.Message = scrub(ent.Message)
	return c.Core.Write(ent, scrubFields(fields))
}

func scrubFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if f.Type == zapcore.StringType {
			f.String = scrub(f.String)
		}
		out[i] = f
	}
	return out
}

func scrub(s string) string {
	s = redact(s)
	if !Verbose() {
		s = truncate(s, truncateLimit)
	}
	return s
}

func redact(s string) string {
	mu.RLock()
	defer mu.RUnlock()
	for _, sec := range secrets {
		s = strings.ReplaceAll(s, sec, "[REDACTED]")
	}
	return s
}

// truncate cuts s to about limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	// keep the last 10 bytes for context
	suffix := "… [truncated]"
	if limit > len(suffix)+10 {
		head, tail := s[:limit-len(suffix)-10], s[len(s)-10:]
		return strings.ToValidUTF8(head, "") + suffix + strings.ToValidUTF8(tail, "")
	}
	return strings.ToValidUTF8(s[:limit], "")
}
