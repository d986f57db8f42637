package undex

import (
	"context"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/zboralski/lattice"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"undex/internal/callgraph"
	"undex/internal/codegen"
	"undex/internal/dex"
	"undex/internal/disasm"
	"undex/internal/output"
	"undex/internal/render"
)

// Batch is one set of classes decompiled together. Lookups and outputs are
// valid once Run returns.
type Batch struct {
	cfg      Config
	opts     codegen.Options
	log      *zap.Logger
	universe *dex.Universe

	classes []*Class
	byName  map[string]*Class
	byDesc  map[string]*Class

	started atomic.Bool
	done    atomic.Int64
}

func newBatch(d *Decompiler, decls []*dex.Class) *Batch {
	b := &Batch{
		cfg:      d.cfg,
		opts:     d.cfg.codegen(),
		log:      d.log,
		universe: dex.NewUniverse(decls),
		byName:   make(map[string]*Class, len(decls)),
		byDesc:   make(map[string]*Class, len(decls)),
	}
	for _, decl := range decls {
		if _, dup := b.byDesc[decl.Name]; dup {
			b.log.Warn("duplicate class ignored", zap.String("class", decl.FullName()))
			continue
		}
		c := newClass(decl)
		b.classes = append(b.classes, c)
		b.byDesc[c.Name] = c
		b.byName[c.FullName()] = c
	}
	return b
}

func (b *Batch) workers() int {
	n := b.cfg.Workers
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > len(b.classes) {
		n = len(b.classes)
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Run decompiles every class on a bounded worker pool. It may be called
// once. Cancellation is checked before each class starts.
func (b *Batch) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.started.CAS(false, true) {
		return ErrStarted
	}

	n := b.workers()
	b.log.Info("batch start", zap.Int("classes", len(b.classes)), zap.Int("workers", n))

	jobs := make(chan *Class)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if ctx.Err() != nil {
					continue
				}
				b.decompile(c)
				b.done.Inc()
			}
		}()
	}

feed:
	for _, c := range b.classes {
		select {
		case jobs <- c:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		b.log.Warn("batch cancelled", zap.Int64("done", b.done.Load()), zap.Int("classes", len(b.classes)))
		return err
	}
	b.log.Info("batch done", zap.Int("classes", len(b.classes)))
	return nil
}

// Progress returns the number of finished classes and the batch size.
func (b *Batch) Progress() (done, total int) {
	return int(b.done.Load()), len(b.classes)
}

// Classes returns every class in input order.
func (b *Batch) Classes() []*Class { return b.classes }

// Lookup finds a class by dotted name, e.g. "com.example.Foo".
func (b *Batch) Lookup(fullName string) (*Class, bool) {
	c, ok := b.byName[fullName]
	return c, ok
}

// LookupRaw finds a class by type descriptor, e.g. "Lcom/example/Foo;".
func (b *Batch) LookupRaw(desc string) (*Class, bool) {
	c, ok := b.byDesc[desc]
	return c, ok
}

// Included returns the classes not matched by excludes, in input order.
func (b *Batch) Included(excludes []string) []*Class {
	if len(excludes) == 0 {
		return b.classes
	}
	out := make([]*Class, 0, len(b.classes))
	for _, c := range b.classes {
		if !Excluded(c.FullName(), excludes) {
			out = append(out, c)
		}
	}
	return out
}

// Release drops per-method intermediate state of every class, keeping
// generated source, errors and call edges.
func (b *Batch) Release() {
	for _, c := range b.classes {
		c.Unload()
	}
	b.log.Debug("batch released", zap.Int("classes", len(b.classes)))
}

func (b *Batch) funcInfos() []callgraph.FuncInfo {
	var funcs []callgraph.FuncInfo
	for _, c := range b.classes {
		for _, m := range c.Methods {
			if m.Decl.Code == nil {
				continue
			}
			funcs = append(funcs, callgraph.FuncInfo{Name: m.Signature(), CallEdges: m.edges})
		}
	}
	return funcs
}

// CallGraph returns the method call graph of the batch.
func (b *Batch) CallGraph() *lattice.Graph {
	return callgraph.BuildCallGraph(b.funcInfos())
}

// Index returns the per-method records of the batch.
func (b *Batch) Index() output.Index { return index(b.classes) }

func index(classes []*Class) output.Index {
	var idx output.Index
	for _, c := range classes {
		for _, m := range c.Methods {
			sig := m.Signature()
			idx.Methods = append(idx.Methods, m.Record())
			idx.CallEdges = append(idx.CallEdges, disasm.CallEdgeRecords(sig, m.edges)...)
			pcs := make([]uint32, 0, len(m.strs))
			for pc := range m.strs {
				pcs = append(pcs, pc)
			}
			sort.Slice(pcs, func(i, j int) bool { return pcs[i] < pcs[j] })
			for _, pc := range pcs {
				idx.StringRefs = append(idx.StringRefs, disasm.StringRefRecord{
					Func:  sig,
					PC:    hexPC(pc),
					Value: m.strs[pc],
				})
			}
		}
	}
	return idx
}

// ClassGraphDOT renders inter-class invokes as DOT. maxNodes limits the
// rendered classes (0 = all).
func (b *Batch) ClassGraphDOT(title string, maxNodes int) string {
	idx := b.Index()
	return render.ClassgraphDOT(idx.Methods, idx.CallEdges, title, render.NASA, maxNodes)
}

// EntryPoints returns the methods no other method of the batch invokes.
func (b *Batch) EntryPoints() []string {
	idx := b.Index()
	return render.FindEntryPoints(idx.Methods, idx.CallEdges)
}

// Reachable returns the methods reachable through resolved invokes from
// the given signatures, or from EntryPoints when none are given.
func (b *Batch) Reachable(from ...string) map[string]bool {
	idx := b.Index()
	if len(from) == 0 {
		from = render.FindEntryPoints(idx.Methods, idx.CallEdges)
	}
	return render.ReachableSet(from, idx.CallEdges)
}

// Save writes the source of every included class below dir/src and the
// index of those classes to dir. Methods that still hold their
// intermediate state also get a listing under dir/asm and a CFG under
// dir/dot.
func (b *Batch) Save(dir string, excludes []string) error {
	included := b.Included(excludes)
	for _, c := range included {
		if err := output.WriteClass(filepath.Join(dir, "src"), c.Name, c.Source()); err != nil {
			return err
		}
		for _, m := range c.Methods {
			if err := saveMethod(dir, m); err != nil {
				return err
			}
		}
	}

	idx := index(included)
	sum := output.Summary{
		Classes:  len(included),
		Methods:  len(idx.Methods),
		Status:   make(map[string]int),
		Excluded: excludes,
	}
	for _, r := range idx.Methods {
		sum.Status[r.Status]++
	}
	if err := output.WriteIndex(dir, sum, idx); err != nil {
		return err
	}
	b.log.Info("batch saved", zap.String("dir", dir), zap.Int("classes", len(included)))
	return nil
}

var fileNameReplacer = strings.NewReplacer("/", ".", ";", "", "<", "", ">", "")

// methodFile names a method's artifacts: its class path, then its name and
// descriptor, e.g. "com/a/B/run(I)V".
func methodFile(m *dex.Method) string {
	cls := strings.TrimSuffix(strings.TrimPrefix(m.Class, "L"), ";")
	return cls + "/" + fileNameReplacer.Replace(m.Name+m.Ref().Descriptor())
}

func saveMethod(dir string, m *Method) error {
	if m.insts == nil {
		return nil
	}
	name := methodFile(m.Decl)
	if err := output.WriteASM(dir, name, m.insts, disasm.PoolAnnotator(m.pool), disasm.TargetAnnotator); err != nil {
		return err
	}
	if dot := m.CFGDot(); dot != "" {
		return output.WriteDOT(dir, name, dot)
	}
	return nil
}
