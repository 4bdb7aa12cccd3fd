package pgraph

import (
	"io"
	"log"
	"sync"
)

// LogWriters routes the fitting log streams. A nil writer silences its
// stream.
type LogWriters struct {
	// Ops receives run start and end, interruptions and destroyed graphs.
	Ops io.Writer
	// Diag receives one line per outer iteration plus seeding and
	// migration notes.
	Diag io.Writer
	// Trace receives every inner step and graph edit.
	Trace io.Writer
}

// stream is one prefixed logger that may be swapped while fits run.
type stream struct {
	mu     sync.RWMutex
	prefix string
	l      *log.Logger
}

func (s *stream) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w == nil {
		s.l = nil
		return
	}
	s.l = log.New(w, s.prefix, log.LstdFlags|log.Lmicroseconds)
}

func (s *stream) printf(format string, args []interface{}) {
	s.mu.RLock()
	l := s.l
	s.mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

var (
	opsStream   = &stream{prefix: "[pgraph] "}
	diagStream  = &stream{prefix: "[pgraph diag] "}
	traceStream = &stream{prefix: "[pgraph trace] "}
)

// SetLogWriters replaces all three streams. Streams are silent until this
// is called.
func SetLogWriters(w LogWriters) {
	opsStream.set(w.Ops)
	diagStream.set(w.Diag)
	traceStream.set(w.Trace)
}

// Opsf writes to the ops stream.
func Opsf(format string, args ...interface{}) { opsStream.printf(format, args) }

// Diagf writes to the diag stream.
func Diagf(format string, args ...interface{}) { diagStream.printf(format, args) }

// Tracef writes to the trace stream.
func Tracef(format string, args ...interface{}) { traceStream.printf(format, args) }
