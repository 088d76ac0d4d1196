// Package logs builds the slog loggers of the command
package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type Options struct {
	// Level of every handler, usually a *slog.LevelVar so it can change while running
	Level slog.Leveler

	// JSONFile receives a JSON copy of the records when set
	JSONFile io.Writer

	// Journal enables the systemd journal handler when running as a systemd service
	Journal bool
}

// New fans records out to a text handler on w and the optional JSON and journal handlers
func New(w io.Writer, opts Options) *slog.Logger {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	handlerOptions := &slog.HandlerOptions{
		Level: opts.Level,
	}

	terminalHandler := slog.NewTextHandler(w, handlerOptions)
	handlers := []slog.Handler{terminalHandler}

	if opts.JSONFile != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.JSONFile, handlerOptions))
	}

	if opts.Journal && isSystemdService() {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: opts.Level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "new systemd journal handler", 0)
			record.Add("error", err)
			_ = terminalHandler.Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// ParseLevel accepts debug, info, warn and error
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(s))
	return level, err
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	str = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
	return str
}

func isSystemdService() bool {
	content, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	parts := strings.Split(strings.TrimSpace(string(content)), ":")
	if len(parts) < 3 {
		return false
	}
	return strings.HasSuffix(path.Dir(parts[2]), ".service")
}
