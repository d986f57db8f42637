// Package dexfmt holds what every decompiler stage shares: the code item
// stream reader, per-method diagnostics and the error taxonomy.
package dexfmt

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// DiagKind classifies a diagnostic.
type DiagKind string

const (
	DiagInvalid    DiagKind = "invalid"    // malformed input that was worked around
	DiagUnresolved DiagKind = "unresolved" // reference outside the known universe
	DiagOverlap    DiagKind = "overlap"    // block claimed by two try ranges
	DiagGoto       DiagKind = "goto"       // block rendered as a goto fragment
)

// Diag is a non-fatal finding about one method, located by the bytecode
// offset it concerns.
type Diag struct {
	Method string   `json:"method,omitempty"`
	Stage  string   `json:"stage,omitempty"`
	Offset uint32   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	s := fmt.Sprintf("[%s] 0x%04x: %s", d.Kind, d.Offset, d.Msg)
	if d.Stage != "" {
		s = d.Stage + ": " + s
	}
	if d.Method != "" {
		s = d.Method + ": " + s
	}
	return s
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (d Diag) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("stage", d.Stage)
	enc.AddString("kind", string(d.Kind))
	enc.AddUint32("offset", d.Offset)
	enc.AddString("msg", d.Msg)
	return nil
}

// Diags collects the diagnostics of one method. Each entry is stamped with
// Method and with the Stage current when it was added; the pipeline moves
// Stage forward as it runs. A nil *Diags discards everything.
type Diags struct {
	Method string
	Stage  string
	items  []Diag
}

func (d *Diags) Add(offset uint32, kind DiagKind, msg string) {
	if d == nil {
		return
	}
	d.items = append(d.items, Diag{Method: d.Method, Stage: d.Stage, Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint32, kind DiagKind, format string, args ...any) {
	d.Add(offset, kind, fmt.Sprintf(format, args...))
}

func (d *Diags) Items() []Diag {
	if d == nil {
		return nil
	}
	return d.items
}

func (d *Diags) Len() int { return len(d.Items()) }

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (d *Diags) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, it := range d.Items() {
		if err := enc.AppendObject(it); err != nil {
			return err
		}
	}
	return nil
}

// Mode says how unresolved references are treated.
type Mode int

const (
	ModeStrict     Mode = iota // an unresolved reference degrades the method
	ModeBestEffort             // placeholders and a diagnostic
)

// DefaultMaxSteps caps decoding and data-flow iterations per method.
const DefaultMaxSteps = 10_000_000

// MaxSteps returns n, or DefaultMaxSteps when n is not positive.
func MaxSteps(n int) int {
	if n > 0 {
		return n
	}
	return DefaultMaxSteps
}
