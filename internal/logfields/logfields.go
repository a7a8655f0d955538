package logfields

import "log/slog"

// Canonical log field names shared across packages.
const (
	KeyOp         = "op"
	KeyCount      = "count"
	KeyRound      = "round"
	KeyTotal      = "total"
	KeyKey        = "key"
	KeyBackend    = "backend"
	KeyPath       = "path"
	KeySession    = "session_id"
	KeyDurationMS = "duration_ms"
	KeyAddr       = "addr"
	KeyError      = "error"
)

func Op(op string) slog.Attr          { return slog.String(KeyOp, op) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Round(n int) slog.Attr           { return slog.Int(KeyRound, n) }
func Total(n int) slog.Attr           { return slog.Int(KeyTotal, n) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Backend(b string) slog.Attr      { return slog.String(KeyBackend, b) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Session(id string) slog.Attr     { return slog.String(KeySession, id) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Addr(a string) slog.Attr         { return slog.String(KeyAddr, a) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
