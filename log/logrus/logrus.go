// Package logrus adapts a logrus entry to store.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/containers/store"
)

var _ store.Logger = Logger{}

// Logger writes store events through E. An "err" field holding an error is
// attached with WithError so hooks and formatters see it as logrus.ErrorKey.
type Logger struct{ E *logrus.Entry }

// New wraps l with a "component" field.
func New(l *logrus.Logger, component string) Logger {
	return Logger{E: l.WithField("component", component)}
}

func (l Logger) Debug(msg string, f store.Fields) { l.entry(f).Debug(msg) }
func (l Logger) Info(msg string, f store.Fields)  { l.entry(f).Info(msg) }
func (l Logger) Warn(msg string, f store.Fields)  { l.entry(f).Warn(msg) }
func (l Logger) Error(msg string, f store.Fields) { l.entry(f).Error(msg) }

func (l Logger) entry(f store.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	fields := make(logrus.Fields, len(f))
	var errVal error
	for k, v := range f {
		if k == "err" {
			if e, ok := v.(error); ok {
				errVal = e
				continue
			}
		}
		fields[k] = v
	}
	e := l.E.WithFields(fields)
	if errVal != nil {
		e = e.WithError(errVal)
	}
	return e
}
