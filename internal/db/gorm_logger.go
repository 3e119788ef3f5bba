package db

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/arencloud/strata/internal/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQuery is the duration above which a statement is logged at warn.
const slowQuery = 200 * time.Millisecond

// sqlLogger routes gorm's output through logging.Logger as fields. Statements
// are reduced to verb and table; raw SQL can carry access keys and is never
// written.
type sqlLogger struct {
	l     logging.Logger
	level logger.LogLevel
}

func newGormLogger(l logging.Logger, lvl logger.LogLevel) *sqlLogger {
	return &sqlLogger{l: l.With("component", "connection-store"), level: lvl}
}

func (g *sqlLogger) LogMode(l logger.LogLevel) logger.Interface {
	cp := *g
	cp.level = l
	return &cp
}

func (g *sqlLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Info {
		g.l.Info("db", "detail", fmt.Sprintf(msg, data...))
	}
}

func (g *sqlLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Warn {
		g.l.Warn("db warning", "detail", fmt.Sprintf(msg, data...))
	}
}

func (g *sqlLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if g.level >= logger.Error {
		g.l.Error("db error", "detail", fmt.Sprintf(msg, data...))
	}
}

func (g *sqlLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= logger.Silent {
		return
	}
	sql, rows := fc()
	elapsed := time.Since(begin)
	op, table := summarizeSQL(sql)
	fields := []any{"op", op, "table", table, "rows", rows, "durationMs", float64(elapsed) / 1e6, "caller", callerOutsideGorm()}

	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		// a missing connection row is an ordinary lookup result
		if g.level >= logger.Info {
			g.l.Debug("db query", append(fields, "notFound", true)...)
		}
	case err != nil:
		if g.level >= logger.Error {
			g.l.Error("db query", append(fields, "error", err.Error())...)
		}
	case elapsed > slowQuery && g.level >= logger.Warn:
		g.l.Warn("db slow query", fields...)
	case g.level >= logger.Info:
		g.l.Debug("db query", fields...)
	}
}

// callerOutsideGorm returns the first file:line on the stack that is not
// inside gorm itself.
func callerOutsideGorm() string {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		if f.File != "" && !strings.Contains(f.File, "gorm.io") {
			return fmt.Sprintf("%s:%d", f.File, f.Line)
		}
		if !more {
			return ""
		}
	}
}

// summarizeSQL reduces a statement to its verb and table, e.g. "UPDATE connections".
func summarizeSQL(sql string) (op string, table string) {
	words := strings.Fields(strings.ToUpper(sql))
	if len(words) == 0 {
		return "", ""
	}
	op = words[0]
	// the table follows the first FROM, INTO or the UPDATE verb itself
	for i, w := range words {
		if i == 0 && w == "UPDATE" || w == "FROM" || w == "INTO" {
			if i+1 < len(words) {
				table = strings.Trim(words[i+1], "`\"()")
			}
			break
		}
	}
	return op, strings.ToLower(table)
}
