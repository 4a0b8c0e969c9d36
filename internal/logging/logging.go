// Package logging builds the zerolog logger used by every fleetconf command.
//
// Each invocation logs under the name of the command it runs, both as a field
// on every entry and as a Loki stream label, so the runs of one Ansible play
// can be told apart.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/fleetconf/internal/config"
)

// App is the default value of the "app" Loki label.
const App = "fleetconf"

// Options select where a command logs.
type Options struct {
	// Out receives the local log stream; stderr when nil. Stdout is reserved
	// for command results.
	Out io.Writer
	// Command names the running subcommand.
	Command string
}

// Setup creates the command logger and, when enabled, ships every entry to
// Loki. The returned cleanup flushes the Loki client.
func Setup(cfg config.LoggingConfig, opts Options) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "text") {
		console := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		if opts.Command != "" {
			console.PartsOrder = []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				"command",
				zerolog.MessageFieldName,
			}
			console.FieldsExclude = []string{"command"}
		}
		out = console
	}

	writers := []io.Writer{out}
	cleanup := func() {}
	if cfg.Loki.Enabled {
		lokiWriter, closer, err := newLokiWriter(cfg.Loki, opts.Command)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		cleanup = closer
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if opts.Command != "" {
		ctx = ctx.Str("command", opts.Command)
	}
	return ctx.Logger().Level(level), cleanup, nil
}

func newLokiWriter(cfg config.LokiConfig, command string) (*lokiWriter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, errors.New("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	return &lokiWriter{handler: client, labels: streamLabels(cfg.Labels, command)}, client.Stop, nil
}

// streamLabels merges the configured labels with the app and command labels.
// Configured values win.
func streamLabels(labels map[string]string, command string) model.LabelSet {
	set := model.LabelSet{"app": App}
	if command != "" {
		set["command"] = model.LabelValue(command)
	}
	for k, v := range labels {
		set[model.LabelName(k)] = model.LabelValue(v)
	}
	return set
}

type entryHandler interface {
	Handle(labels model.LabelSet, t time.Time, entry string) error
}

// lokiWriter splits entries into one Loki stream per level.
type lokiWriter struct {
	handler entryHandler
	labels  model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	return l.WriteLevel(zerolog.NoLevel, p)
}

func (l *lokiWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	labels := l.labels
	if level != zerolog.NoLevel {
		labels = l.labels.Merge(model.LabelSet{"level": model.LabelValue(level.String())})
	}
	err := l.handler.Handle(labels, time.Now(), entry)
	return len(p), err
}
