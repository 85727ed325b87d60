package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Service string
	Level   string
	Out     io.Writer
}

// New builds the process logger: JSON lines with timestamp/severity/message keys.
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.Level = parseLevel(opts.Level)
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
	}
	log.Out = os.Stdout
	if opts.Out != nil {
		log.Out = opts.Out
	}
	if opts.Service != "" {
		log.AddHook(serviceHook(opts.Service))
	}
	return log
}

func parseLevel(lvl string) logrus.Level {
	l, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(lvl)))
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

type serviceHook string

func (h serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h serviceHook) Fire(e *logrus.Entry) error {
	e.Data["service"] = string(h)
	return nil
}

type ctxKeyLog struct{}

// WithContext stores a field logger in ctx.
func WithContext(ctx context.Context, log logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLog{}, log)
}

// FromContext returns the logger stored in ctx (or the standard logger),
// annotated with the active trace and span ids.
func FromContext(ctx context.Context) logrus.FieldLogger {
	log, ok := ctx.Value(ctxKeyLog{}).(logrus.FieldLogger)
	if !ok {
		log = logrus.StandardLogger()
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		log = log.WithFields(logrus.Fields{
			"trace_id": sc.TraceID().String(),
			"span_id":  sc.SpanID().String(),
		})
	}
	return log
}
