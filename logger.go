package kliento

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// SimpleLogger writes leveled key=value lines to stderr. Intended for
// examples and local debugging; production services should plug in their own
// Logger (see NewZapLogger).
type SimpleLogger struct {
	l *log.Logger
}

// NewSimpleLogger returns a logger writing to stderr with timestamps.
func NewSimpleLogger() *SimpleLogger {
	return &SimpleLogger{l: log.New(os.Stderr, "kliento ", log.LstdFlags)}
}

func (s *SimpleLogger) Debug(msg string, keysAndValues ...any) { s.print("DEBUG", msg, keysAndValues) }
func (s *SimpleLogger) Info(msg string, keysAndValues ...any)  { s.print("INFO", msg, keysAndValues) }
func (s *SimpleLogger) Warn(msg string, keysAndValues ...any)  { s.print("WARN", msg, keysAndValues) }
func (s *SimpleLogger) Error(msg string, keysAndValues ...any) { s.print("ERROR", msg, keysAndValues) }

func (s *SimpleLogger) print(level, msg string, kv []any) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteByte(' ')
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 == 1 {
		fmt.Fprintf(&b, " %v", kv[len(kv)-1])
	}
	s.l.Println(b.String())
}

// redactedHeaders are never logged verbatim.
var redactedHeaders = map[string]struct{}{
	"Authorization": {},
	"Cookie":        {},
	"Set-Cookie":    {},
}

// redactHeaders returns a loggable flat copy of hdr with credentials masked.
func redactHeaders(hdr map[string][]string) map[string]string {
	out := make(map[string]string, len(hdr))
	for k, v := range hdr {
		if _, sensitive := redactedHeaders[k]; sensitive {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = strings.Join(v, ", ")
	}
	return out
}
