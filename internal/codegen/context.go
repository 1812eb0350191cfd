package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/solatis/ensuregen/internal/types"
)

// writer accumulates tab-indented lines. Output is gofmt-shaped but is
// formatted again by RenderFile.
type writer struct {
	buf    bytes.Buffer
	indent int
}

// P writes one line built from args at the current indentation.
func (w *writer) P(args ...any) {
	if len(args) == 0 {
		w.buf.WriteByte('\n')
		return
	}
	w.buf.WriteString(strings.Repeat("\t", w.indent))
	for _, a := range args {
		fmt.Fprint(&w.buf, a)
	}
	w.buf.WriteByte('\n')
}

// Lines writes a multi-line block, re-indenting every line.
func (w *writer) Lines(block string) {
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		w.P(strings.TrimLeft(line, " \t"))
	}
}

func (w *writer) In()  { w.indent++ }
func (w *writer) Out() { w.indent-- }

func (w *writer) String() string { return w.buf.String() }

// cursor is shared by every context forked within one validator.
// remaining counts failure sites not yet rendered; seq names labels and locals.
type cursor struct {
	remaining int
	seq       int
}

// take returns the remaining failure-site count including the current site.
func (c *cursor) take() int {
	n := c.remaining
	c.remaining--
	return n
}

func (c *cursor) next() int {
	c.seq++
	return c.seq
}

// ladderState tracks how the next failure guard opens.
type ladderState int

const (
	ladderAlways ladderState = iota // every guard is its own if
	ladderBegin                     // next guard opens an if/else-if ladder
	ladderElse                      // next guard continues the ladder
)

// haltRegion is a labelled block that halting failures jump out of.
// The label is only written when some failure used it.
type haltRegion struct {
	label string
	used  bool
}

func (h *haltRegion) jump() string {
	h.used = true
	return h.label
}

// chainContext is the per-scope assembly state. Forking copies the value;
// all copies share one cursor.
type chainContext struct {
	cur    *cursor
	mode   types.OnFailure
	halt   *haltRegion
	ladder ladderState
	async  bool
	model  string
	idx    []string // loop index variables, outermost first
}

// withIndex returns a child context for an item scope iterated by v.
func (c chainContext) withIndex(v string) chainContext {
	child := c
	child.idx = append(c.idx[:len(c.idx):len(c.idx)], v)
	child.ladder = ladderAlways
	return child
}

// openGuard writes the opening line of a failure guard.
func (c *chainContext) openGuard(w *writer, cond string) {
	switch c.ladder {
	case ladderBegin:
		w.P("if ", cond, " {")
		c.ladder = ladderElse
	case ladderElse:
		w.P("} else if ", cond, " {")
	default:
		w.P("if ", cond, " {")
	}
}

// closeGuard closes a guard unless the ladder is still open.
func (c *chainContext) closeGuard(w *writer) {
	if c.ladder == ladderAlways {
		w.P("}")
	}
}
