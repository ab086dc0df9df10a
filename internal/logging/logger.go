package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"
)

const serviceName = "storefront"

type ctxKey string

const slogFields ctxKey = "slog_fields"

// ContextHandler adds attributes stored with AppendCtx to every record.
type ContextHandler struct {
	slog.Handler
}

func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ContextHandler) WithGroup(name string) slog.Handler {
	return ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// AppendCtx returns a copy of ctx carrying attr in addition to the ones already there.
func AppendCtx(ctx context.Context, attr slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	var attrs []slog.Attr
	if v, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		attrs = append(attrs, v...)
	}
	attrs = append(attrs, attr)
	return context.WithValue(ctx, slogFields, attrs)
}

func attrsFromContext(ctx context.Context) []slog.Attr {
	if v, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		return v
	}
	return nil
}

// GetLogger returns a JSON stdout logger, or a Loki-backed one when lokiURL is set.
func GetLogger(lokiURL string) *slog.Logger {
	if lokiURL == "" {
		return localLogger()
	}

	logger, err := remoteLogger(lokiURL)
	if err != nil {
		l := localLogger()
		l.Error("Failed to create loki client, falling back to stdout", "error", err)
		return l
	}
	return logger
}

func localLogger() *slog.Logger {
	return slog.New(ContextHandler{Handler: slog.NewJSONHandler(os.Stdout, nil)}).With("service", serviceName)
}

func remoteLogger(url string) (*slog.Logger, error) {
	lokiConfig, err := loki.NewDefaultConfig(url)
	if err != nil {
		return nil, err
	}
	client, err := loki.New(lokiConfig)
	if err != nil {
		return nil, err
	}

	return slog.New(slogloki.Option{
		Level:           slog.LevelInfo,
		Client:          client,
		AttrFromContext: []func(ctx context.Context) []slog.Attr{attrsFromContext},
	}.NewLokiHandler()).With("service", serviceName), nil
}
