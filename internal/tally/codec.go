package tally

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/malacounter/internal/kvstore"
	"git.home.luguber.info/inful/malacounter/internal/logfields"
)

// Persisted key names.
const (
	KeyCount = "count"
	KeyRound = "round"
	KeyTotal = "totalCount"
)

// Keys lists every persisted key.
var Keys = []string{KeyCount, KeyRound, KeyTotal}

// Load reads the state from store. It never fails: absent, unreadable or
// non-numeric values read as 0, and the result is normalized so it
// satisfies State.Valid.
func Load(ctx context.Context, store kvstore.Store, logger *slog.Logger) State {
	if logger == nil {
		logger = slog.Default()
	}
	raw := State{
		Count: readInt(ctx, store, KeyCount, logger),
		Round: readInt(ctx, store, KeyRound, logger),
		Total: readInt(ctx, store, KeyTotal, logger),
	}
	s := Normalize(raw)
	if s != raw {
		logger.Warn("Normalized persisted tally state",
			slog.String("stored", raw.String()),
			slog.String("loaded", s.String()))
	}
	return s
}

// Normalize repairs out-of-range values. A count of exactly CycleLength is a
// finished round that was never rolled over and becomes (0, round+1); any
// other out-of-range count is treated as corrupt and reads as 0.
func Normalize(s State) State {
	switch {
	case s.Count == CycleLength:
		s.Count = 0
		s.Round = max(s.Round, 0) + 1
	case s.Count < 0 || s.Count > CycleLength:
		s.Count = 0
	}
	s.Round = max(s.Round, 0)
	s.Total = max(s.Total, 0)
	return s
}

// Encode renders s as the persisted key/value pairs.
func Encode(s State) map[string]string {
	return map[string]string{
		KeyCount: strconv.Itoa(s.Count),
		KeyRound: strconv.Itoa(s.Round),
		KeyTotal: strconv.Itoa(s.Total),
	}
}

// ParseValue parses a persisted decimal value; anything else is 0.
func ParseValue(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}

func readInt(ctx context.Context, store kvstore.Store, key string, logger *slog.Logger) int {
	result := store.Get(ctx, key)
	if result.IsErr() {
		logger.Warn("Failed to read persisted value, using 0", logfields.Key(key), logfields.Error(result.UnwrapErr()))
		return 0
	}
	raw, ok := result.Unwrap().Get()
	if !ok {
		return 0
	}
	return ParseValue(raw)
}
