// Package gelf ships log entries to a Graylog input as GELF 1.1 over UDP.
package gelf

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// Writer turns JSON log lines into GELF messages. It satisfies
// zapcore.WriteSyncer so it can back a zap core directly.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service + "-server"
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

// Write sends one GELF message per call. p is expected to be a single JSON
// object as produced by zap's JSON encoder; anything else is sent verbatim
// as the short message.
func (w *Writer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	msg := map[string]any{
		"version":   "1.1",
		"host":      w.hostname,
		"timestamp": float64(time.Now().UnixNano()) / 1e9,
		"level":     6,
		"_service":  w.service,
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		msg["short_message"] = line
	} else {
		msg["short_message"] = entry["msg"]
		if lvl, ok := entry["level"].(string); ok {
			msg["level"] = syslogLevel(lvl)
		}
		for k, v := range entry {
			switch k {
			case "msg", "level", "timestamp", "id":
				continue
			}
			msg["_"+k] = v
		}
		if _, ok := msg["short_message"].(string); !ok {
			msg["short_message"] = line
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil // don't fail the log call
	}

	// Fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}

func (w *Writer) Sync() error { return nil }

func (w *Writer) Close() error { return w.conn.Close() }

func syslogLevel(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 7
	case "info":
		return 6
	case "warn":
		return 4
	case "error":
		return 3
	default:
		return 2
	}
}
