package logging

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Fatal(msg string, kv ...any)
	// With returns a child logger that adds kv to every entry.
	With(kv ...any) Logger
}

// Entry is the in-memory copy of a log line kept for /logs/recent and live
// subscribers.
type Entry struct {
	Time   time.Time      `json:"time"`
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

var (
	bufMu   sync.RWMutex
	recent  = make([]*Entry, 1000)
	nextIdx = 0

	// process-wide level shared by every logger
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	subMu       sync.RWMutex
	subscribers = map[chan *Entry]struct{}{}
)

type zapLogger struct {
	s      *zap.SugaredLogger
	fields []any
}

// New builds the root logger. env "dev" switches to zap's development
// encoder settings; jsonOut picks the JSON encoder over the console one.
func New(env, lvl string, jsonOut bool) Logger {
	SetLevel(lvl)
	return newWithSink(env, jsonOut, zapcore.Lock(os.Stderr))
}

func newWithSink(env string, jsonOut bool, ws zapcore.WriteSyncer) *zapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	if env == "dev" {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	var enc zapcore.Encoder
	if jsonOut {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}
	core := zapcore.NewCore(enc, ws, level)
	return &zapLogger{s: zap.New(core).Sugar()}
}

// SetLevel accepts debug|info|warn|error|fatal; anything else means info.
func SetLevel(lvl string) {
	switch lvl {
	case "debug":
		level.SetLevel(zapcore.DebugLevel)
	case "warn":
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		level.SetLevel(zapcore.ErrorLevel)
	case "fatal":
		level.SetLevel(zapcore.FatalLevel)
	default:
		level.SetLevel(zapcore.InfoLevel)
	}
}

func GetLevel() string { return level.Level().String() }

func broadcast(e *Entry) {
	subMu.RLock()
	defer subMu.RUnlock()
	for ch := range subscribers {
		select {
		case ch <- e:
		default: // slow subscriber, drop
		}
	}
}

func appendBuf(e *Entry) {
	bufMu.Lock()
	recent[nextIdx] = e
	nextIdx = (nextIdx + 1) % len(recent)
	bufMu.Unlock()
	broadcast(e)
}

func fieldsFromKV(kv []any) map[string]any {
	if len(kv) == 0 {
		return nil
	}
	m := map[string]any{}
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		if err, ok := kv[i+1].(error); ok {
			m[k] = err.Error()
			continue
		}
		m[k] = kv[i+1]
	}
	return m
}

func (l *zapLogger) record(lvl zapcore.Level, msg string, kv []any) bool {
	if !level.Enabled(lvl) {
		return false
	}
	all := make([]any, 0, len(l.fields)+len(kv))
	all = append(append(all, l.fields...), kv...)
	appendBuf(&Entry{Time: time.Now(), Level: lvl.String(), Msg: msg, Fields: fieldsFromKV(all)})
	return true
}

func (l *zapLogger) Debug(msg string, kv ...any) {
	if l.record(zapcore.DebugLevel, msg, kv) {
		l.s.Debugw(msg, kv...)
	}
}

func (l *zapLogger) Info(msg string, kv ...any) {
	if l.record(zapcore.InfoLevel, msg, kv) {
		l.s.Infow(msg, kv...)
	}
}

func (l *zapLogger) Warn(msg string, kv ...any) {
	if l.record(zapcore.WarnLevel, msg, kv) {
		l.s.Warnw(msg, kv...)
	}
}

func (l *zapLogger) Error(msg string, kv ...any) {
	if l.record(zapcore.ErrorLevel, msg, kv) {
		l.s.Errorw(msg, kv...)
	}
}

func (l *zapLogger) Fatal(msg string, kv ...any) {
	l.record(zapcore.FatalLevel, msg, kv)
	l.s.Fatalw(msg, kv...)
}

func (l *zapLogger) With(kv ...any) Logger {
	fields := make([]any, 0, len(l.fields)+len(kv))
	fields = append(append(fields, l.fields...), kv...)
	return &zapLogger{s: l.s.With(kv...), fields: fields}
}

// Recent returns up to n most recent log entries (newest-first).
func Recent(n int) []*Entry {
	bufMu.RLock()
	defer bufMu.RUnlock()
	if n <= 0 || n > len(recent) {
		n = len(recent)
	}
	out := make([]*Entry, 0, n)
	i := (nextIdx - 1 + len(recent)) % len(recent)
	for c := 0; c < len(recent) && len(out) < n; c++ {
		if recent[i] != nil {
			out = append(out, recent[i])
		}
		i = (i - 1 + len(recent)) % len(recent)
	}
	return out
}

// Subscribe returns a channel that will receive new log entries. Call the returned cancel func to unsubscribe.
func Subscribe() (<-chan *Entry, func()) {
	ch := make(chan *Entry, 100)
	subMu.Lock()
	subscribers[ch] = struct{}{}
	subMu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			subMu.Lock()
			delete(subscribers, ch)
			close(ch)
			subMu.Unlock()
		})
	}
	return ch, cancel
}
