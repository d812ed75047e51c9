// Package zap adapts a zap logger to store.Logger.
package zap

import (
	"sort"

	"github.com/unkn0wn-root/containers/store"
	"go.uber.org/zap"
)

var _ store.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f store.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f store.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f store.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f store.Fields) { z.L.Error(msg, fields(f)...) }

// fields emits keys in sorted order; error values become zap.NamedError.
func fields(f store.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
