package undex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zboralski/lattice"
	"go.uber.org/zap"
	"undex/internal/callgraph"
	"undex/internal/codegen"
	"undex/internal/dex"
	"undex/internal/dexfmt"
	"undex/internal/disasm"
	"undex/internal/region"
	"undex/internal/render"
	"undex/internal/typing"
)

// Method statuses.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded" // rendered as listing plus a throwing body
	StatusGoto     = "goto"     // rendered with goto fragments
	StatusAbstract = "abstract" // no code
)

// Method is the decompiled form of one method.
type Method struct {
	Decl   *dex.Method
	Status string

	pool   *dex.Pool
	src    string
	err    error
	diags  dexfmt.Diags // Stage tracks the running pipeline stage
	size   int
	blocks int

	// Kept after release.
	edges []disasm.CallEdge
	strs  map[uint32]string

	insts   []disasm.Inst
	cfg     *disasm.FuncCFG
	regions []disasm.ExceptionRegion
	types   *typing.Result
	tree    *region.Tree
}

// Signature returns the method's key, e.g. "Lcom/a/B;->m(I)V".
func (m *Method) Signature() string { return m.Decl.Signature() }

// Source returns the rendered method.
func (m *Method) Source() string { return m.src }

// Err returns the failure that degraded the method, the irreducible control
// flow notice of a goto method, or nil.
func (m *Method) Err() error { return m.err }

// Diags returns the non-fatal diagnostics of the method.
func (m *Method) Diags() []dexfmt.Diag { return m.diags.Items() }

// Listing returns the annotated instruction listing, or "" once released
// or when decoding failed.
func (m *Method) Listing() string {
	if m.insts == nil {
		return ""
	}
	return disasm.FormatListing(m.insts, disasm.PoolAnnotator(m.pool), disasm.TargetAnnotator)
}

// CFGDot renders the method's CFG as DOT, or "" once released.
func (m *Method) CFGDot() string {
	if m.cfg == nil {
		return ""
	}
	return render.CFGDOT(m.cfg, render.NASA)
}

// LatticeCFG returns the method's CFG with its call sites, or nil once
// released.
func (m *Method) LatticeCFG() *lattice.FuncCFG {
	if m.cfg == nil {
		return nil
	}
	lcfg, _ := callgraph.BuildFuncCFG(callgraph.FuncInfo{
		Name:       m.Signature(),
		CFG:        m.cfg,
		CallEdges:  m.edges,
		StringRefs: m.strs,
	})
	return lcfg
}

// Region returns the structured form, or nil when the method was degraded
// or released.
func (m *Method) Region() region.Region {
	if m.tree == nil {
		return nil
	}
	return m.tree.Root
}

// Record returns the method's index record.
func (m *Method) Record() disasm.MethodRecord {
	r := disasm.MethodRecord{
		Method: m.Signature(),
		Class:  m.Decl.Class,
		Size:   m.size,
		Blocks: m.blocks,
		Status: m.Status,
	}
	if m.Status == StatusDegraded && m.err != nil {
		r.Error = m.err.Error()
	}
	return r
}

func (m *Method) release() {
	m.insts = nil
	m.cfg = nil
	m.regions = nil
	m.types = nil
	m.tree = nil
}

func (m *Method) fail(err error) {
	m.Status = StatusDegraded
	m.err = err
}

// method runs the pipeline on one method and renders it with imp.
func (b *Batch) method(m *Method, imp *codegen.Imports) {
	decl := m.Decl
	if decl.Code == nil {
		m.Status = StatusAbstract
		m.src = codegen.Abstract(decl, imp, b.opts)
		return
	}
	m.Status = StatusOK
	m.size = len(decl.Code.Insns)

	func() {
		defer func() {
			if r := recover(); r != nil {
				m.fail(&dexfmt.StructuralError{
					Method: m.Signature(),
					Stage:  m.diags.Stage,
					Reason: fmt.Sprintf("panic: %v", r),
				})
			}
		}()
		b.pipeline(m, imp)
	}()
	if m.diags.Len() > 0 {
		b.log.Debug("method diagnostics", zap.String("method", m.Signature()), zap.Array("diags", &m.diags))
	}

	if m.Status != StatusDegraded {
		return
	}
	listing := m.Listing()
	if listing == "" {
		listing = rawListing(decl.Code.Insns)
	}
	m.src = codegen.Degraded(decl, imp, listing, m.err, b.opts)

	var se *dexfmt.StructuralError
	if errors.As(m.err, &se) {
		b.log.Error("structural inconsistency",
			zap.String("class", dex.JavaName(decl.Class)),
			zap.String("method", m.Signature()),
			zap.String("stage", m.diags.Stage),
			zap.Int("insts", len(m.insts)),
			zap.Error(m.err))
		return
	}
	b.log.Warn("method degraded",
		zap.String("class", dex.JavaName(decl.Class)),
		zap.String("method", m.Signature()),
		zap.Error(m.err))
}

func (b *Batch) pipeline(m *Method, imp *codegen.Imports) {
	code := m.Decl.Code
	sig := m.Signature()

	m.diags.Method = sig
	m.diags.Stage = "decode"
	insts, err := disasm.Decode(code.Insns, disasm.Options{MaxSteps: b.cfg.MaxSteps, Registers: code.Registers})
	if err != nil {
		m.fail(err)
		return
	}
	m.insts = insts
	m.edges = disasm.ExtractCallEdges(insts, m.pool)
	m.strs = disasm.StringRefs(insts, m.pool)

	m.diags.Stage = "cfg"
	cfg := disasm.BuildCFG(sig, insts, disasm.TryLeaders(code.Tries)...)
	m.cfg = &cfg
	m.blocks = len(cfg.Blocks)

	m.diags.Stage = "exceptions"
	m.regions = disasm.ResolveExceptions(m.cfg, code.Tries, &m.diags)

	m.diags.Stage = "types"
	types, err := typing.Infer(m.cfg, m.regions, m.Decl, m.pool, b.universe, typing.Options{
		MaxSteps: b.cfg.MaxSteps,
		Hints:    b.cfg.Hints[sig],
	})
	if err != nil {
		m.fail(err)
		return
	}
	m.types = types
	var notes []string
	for _, ref := range types.Refs {
		m.diags.Add(0, dexfmt.DiagUnresolved, ref.Error())
		notes = append(notes, ref.Error())
	}
	if b.cfg.mode() == dexfmt.ModeStrict && len(types.Refs) > 0 {
		m.fail(types.Refs[0])
		return
	}

	in := &codegen.Input{
		Method:   m.Decl,
		Pool:     m.pool,
		Universe: b.universe,
		CFG:      m.cfg,
		Regions:  m.regions,
		Types:    types,
	}

	m.diags.Stage = "regions"
	tree, err := region.Build(m.cfg, m.regions, region.Options{FoldableHeader: codegen.FoldableHeader(in)})
	var irr *dexfmt.IrreducibleError
	switch {
	case errors.As(err, &irr):
		m.Status = StatusGoto
		m.err = err
		for _, blk := range irr.Blocks {
			m.diags.Addf(cfg.BlockAddr(blk), dexfmt.DiagGoto, "block %d reached through goto", blk)
		}
		notes = append(notes, err.Error())
		b.log.Debug("irreducible control flow", zap.String("method", sig), zap.Int("blocks", len(irr.Blocks)))
	case err != nil:
		m.fail(err)
		return
	}
	m.tree = tree
	in.Tree = tree
	in.Notes = notes

	m.diags.Stage = "codegen"
	m.src = codegen.Method(in, imp, b.opts)
}

// rawListing dumps code units when no instruction could be decoded.
func rawListing(code []byte) string {
	var b strings.Builder
	for off := 0; off < len(code); off += 8 {
		end := off + 8
		if end > len(code) {
			end = len(code)
		}
		fmt.Fprintf(&b, "0x%04x ", off)
		for k := off; k+1 < end; k += 2 {
			fmt.Fprintf(&b, " %02x%02x", code[k+1], code[k])
		}
		if (end-off)%2 == 1 {
			fmt.Fprintf(&b, " %02x", code[end-1])
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func hexPC(pc uint32) string { return fmt.Sprintf("0x%04x", pc) }
