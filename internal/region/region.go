// Package region recovers structured control flow (sequences, conditionals,
// loops, switches and try/catch) from a method CFG.
package region

import (
	"fmt"
	"strings"
)

// Region is a node of the structured control tree. The set of variants is
// closed: *Block, *Sequence, *If, *Loop, *Switch, *TryCatch, *Jump and
// *Unstructured.
type Region interface {
	region()
}

// Block is a leaf holding one CFG basic block.
type Block struct {
	ID   int
	Dead bool // unreachable from the method entry
}

// Sequence is straight-line composition.
type Sequence struct {
	Items []Region
}

// If is a two-way conditional. Cond holds the block ending in the if-test;
// its other instructions run before the test. Then runs when the test holds
// (after applying Negate). Either branch may be nil.
type If struct {
	Cond   *Block
	Negate bool
	Then   Region
	Else   Region
}

// LoopKind classifies a loop by where its exit test sits.
type LoopKind uint8

const (
	PreTest  LoopKind = iota // while (cond) { body }
	PostTest                 // do { body } while (cond)
	Infinite                 // while (true) { body }
)

func (k LoopKind) String() string {
	switch k {
	case PreTest:
		return "while"
	case PostTest:
		return "do-while"
	}
	return "infinite"
}

// Loop is a natural loop. For PreTest, Cond is the header; for PostTest,
// Cond is the latch. The loop continues while the test (after Negate) holds.
type Loop struct {
	Kind   LoopKind
	Cond   *Block
	Negate bool
	Body   Region
	Label  string // set when a nested jump needs to name this loop
	Header int
}

// Switch is a multi-way branch on the value tested by Header's last
// instruction.
type Switch struct {
	Header *Block
	Cases  []*Case
	Label  string
}

// Case is one arm of a switch. Keys holding several values come from arms
// sharing a target. Default marks the arm taken when no key matches.
type Case struct {
	Keys    []int32
	Default bool
	Body    Region
}

// TryCatch is a protected region. Index refers to the exception region the
// try was built from.
type TryCatch struct {
	Index   int
	Body    Region
	Catches []*Catch
	Finally Region // catch-all handler body, nil if none
	// FinallyEntry is the catch-all handler's entry block, -1 if none.
	FinallyEntry int
}

// Catch is one typed handler. Several types share a catch when their
// handlers enter the same block.
type Catch struct {
	Types []string // exception descriptors
	Entry int      // handler entry block
	Body  Region
}

// JumpKind classifies a control leaf.
type JumpKind uint8

const (
	Break JumpKind = iota
	Continue
	Goto
	Return      // inlined copy of a shared return block
	Fallthrough // switch arm continuing into the next arm
)

func (k JumpKind) String() string {
	switch k {
	case Break:
		return "break"
	case Continue:
		return "continue"
	case Goto:
		return "goto"
	case Return:
		return "return"
	}
	return "fallthrough"
}

// Jump is a control transfer that is not expressed by nesting.
type Jump struct {
	Kind   JumpKind
	Target int    // destination block
	Label  string // loop or switch label for labeled break/continue
}

// Unstructured holds blocks the structuring pass could not place; they are
// reached through Goto jumps and rendered with labels.
type Unstructured struct {
	Items []Region
}

func (*Block) region()        {}
func (*Sequence) region()     {}
func (*If) region()           {}
func (*Loop) region()         {}
func (*Switch) region()       {}
func (*TryCatch) region()     {}
func (*Jump) region()         {}
func (*Unstructured) region() {}

// Walk calls fn for r and every region nested in it, depth first.
func Walk(r Region, fn func(Region)) {
	if r == nil {
		return
	}
	fn(r)
	switch r := r.(type) {
	case *Block, *Jump:
	case *Sequence:
		for _, it := range r.Items {
			Walk(it, fn)
		}
	case *If:
		walkBlock(r.Cond, fn)
		Walk(r.Then, fn)
		Walk(r.Else, fn)
	case *Loop:
		if r.Kind == PreTest {
			walkBlock(r.Cond, fn)
			Walk(r.Body, fn)
		} else {
			Walk(r.Body, fn)
			walkBlock(r.Cond, fn)
		}
	case *Switch:
		walkBlock(r.Header, fn)
		for _, c := range r.Cases {
			Walk(c.Body, fn)
		}
	case *TryCatch:
		Walk(r.Body, fn)
		for _, c := range r.Catches {
			Walk(c.Body, fn)
		}
		Walk(r.Finally, fn)
	case *Unstructured:
		for _, it := range r.Items {
			Walk(it, fn)
		}
	default:
		panic(fmt.Sprintf("region: unknown region %T", r))
	}
}

// walkBlock visits a block field; infinite loops have no Cond.
func walkBlock(b *Block, fn func(Region)) {
	if b != nil {
		fn(b)
	}
}

// Dump renders a region tree as an indented outline for debugging and
// tests.
func Dump(r Region) string {
	var b strings.Builder
	dump(&b, r, 0)
	return b.String()
}

func dump(b *strings.Builder, r Region, depth int) {
	if r == nil {
		return
	}
	ind := strings.Repeat("  ", depth)
	switch r := r.(type) {
	case *Block:
		if r.Dead {
			fmt.Fprintf(b, "%sdead B%d\n", ind, r.ID)
		} else {
			fmt.Fprintf(b, "%sB%d\n", ind, r.ID)
		}
	case *Sequence:
		for _, it := range r.Items {
			dump(b, it, depth)
		}
	case *If:
		neg := ""
		if r.Negate {
			neg = "!"
		}
		fmt.Fprintf(b, "%sif %sB%d\n", ind, neg, r.Cond.ID)
		dump(b, r.Then, depth+1)
		if r.Else != nil {
			fmt.Fprintf(b, "%selse\n", ind)
			dump(b, r.Else, depth+1)
		}
	case *Loop:
		label := ""
		if r.Label != "" {
			label = r.Label + ": "
		}
		switch r.Kind {
		case PreTest:
			neg := ""
			if r.Negate {
				neg = "!"
			}
			fmt.Fprintf(b, "%s%swhile %sB%d\n", ind, label, neg, r.Cond.ID)
			dump(b, r.Body, depth+1)
		case PostTest:
			fmt.Fprintf(b, "%s%sdo\n", ind, label)
			dump(b, r.Body, depth+1)
			neg := ""
			if r.Negate {
				neg = "!"
			}
			fmt.Fprintf(b, "%swhile %sB%d\n", ind, neg, r.Cond.ID)
		default:
			fmt.Fprintf(b, "%s%sloop\n", ind, label)
			dump(b, r.Body, depth+1)
		}
	case *Switch:
		fmt.Fprintf(b, "%sswitch B%d\n", ind, r.Header.ID)
		for _, c := range r.Cases {
			keys := make([]string, 0, len(c.Keys)+1)
			for _, k := range c.Keys {
				keys = append(keys, fmt.Sprint(k))
			}
			if c.Default {
				keys = append(keys, "default")
			}
			fmt.Fprintf(b, "%scase %s\n", ind, strings.Join(keys, ","))
			dump(b, c.Body, depth+1)
		}
	case *TryCatch:
		fmt.Fprintf(b, "%stry\n", ind)
		dump(b, r.Body, depth+1)
		for _, c := range r.Catches {
			fmt.Fprintf(b, "%scatch %s\n", ind, strings.Join(c.Types, "|"))
			dump(b, c.Body, depth+1)
		}
		if r.Finally != nil {
			fmt.Fprintf(b, "%sfinally\n", ind)
			dump(b, r.Finally, depth+1)
		}
	case *Jump:
		if r.Label != "" {
			fmt.Fprintf(b, "%s%s %s\n", ind, r.Kind, r.Label)
		} else {
			fmt.Fprintf(b, "%s%s B%d\n", ind, r.Kind, r.Target)
		}
	case *Unstructured:
		fmt.Fprintf(b, "%sunstructured\n", ind)
		for _, it := range r.Items {
			dump(b, it, depth+1)
		}
	}
}
