package logging

import "time"

// Field is one key/value pair of a log line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Error records err's text under "error"; a nil error logs as null.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Component(name string) Field { return String("component", name) }
func Operation(op string) Field   { return String("operation", op) }
func Path(p string) Field         { return String("path", p) }
func Count(n int) Field           { return Int("count", n) }

// Latency is logged as a duration string such as "1.5ms".
func Latency(d time.Duration) Field { return String("latency", d.String()) }

// Clustering fields

func RunID(id string) Field { return String("run_id", id) }

// LevelNumber is the index of a level in the multilevel hierarchy.
func LevelNumber(n int) Field { return Int("louvain_level", n) }

func Modularity(q float64) Field  { return Field{Key: "modularity", Value: q} }
func Communities(k int) Field     { return Int("communities", k) }
func Nodes(n int) Field           { return Int("nodes", n) }
func Edges(n int) Field           { return Int("edges", n) }
func Passes(n int) Field          { return Int("passes", n) }
func Moves(n int) Field           { return Int("moves", n) }
func Fingerprint(fp string) Field { return String("fingerprint", fp) }
