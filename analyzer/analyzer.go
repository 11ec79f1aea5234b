package analyzer

import (
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kbukum/dbkit/engine"
	"github.com/kbukum/dbkit/logger"
)

// Kind classifies a captured statement.
type Kind string

const (
	KindSelect  Kind = "SELECT"
	KindInsert  Kind = "INSERT"
	KindUpdate  Kind = "UPDATE"
	KindDelete  Kind = "DELETE"
	KindUnknown Kind = "UNKNOWN"
)

// DefaultSelectThreshold is the SELECT count a capture window must exceed
// before repeated patterns raise the N+1 flag. Two queries is a normal
// fetch-then-check flow, not an anti-pattern.
const DefaultSelectThreshold = 2

// CapturedStatement is one statement observed during a capture window.
type CapturedStatement struct {
	// SQL is the normalized statement text (whitespace collapsed).
	SQL string
	// Kind is inferred from the leading keyword.
	Kind Kind
	// Params are the bound parameters as sent to the driver.
	Params []interface{}
	// Index is the statement's position in execution order, from 0.
	Index int
}

// Option configures a capture window.
type Option func(*Capture)

// WithLabel tags a capture window for log correlation.
func WithLabel(label string) Option {
	return func(c *Capture) { c.label = label }
}

// WithThreshold overrides the SELECT-count threshold above which repeated
// patterns raise the N+1 flag.
func WithThreshold(n int) Option {
	return func(c *Capture) { c.threshold = n }
}

// Capture records the statements executed through one engine between Begin
// and End. Captures are not re-entrant: callers needing isolated windows
// open separate captures, each with its own buffer.
type Capture struct {
	id        string
	label     string
	threshold int
	log       *logger.Logger

	mu    sync.Mutex
	open  bool
	stmts []CapturedStatement

	unsubscribe func()
	endOnce     sync.Once
}

// Begin opens a capture window on eng. Every statement executed through the
// engine — from any session drawn from it — is recorded until End is
// called.
func Begin(eng *engine.Engine, log *logger.Logger, opts ...Option) *Capture {
	c := &Capture{
		id:        uuid.NewString(),
		threshold: DefaultSelectThreshold,
		log:       log.WithComponent("analyzer"),
		open:      true,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.unsubscribe = eng.Subscribe(c.record)
	c.log.Debug("capture window opened", map[string]interface{}{
		"capture_id": c.id,
		"label":      c.label,
	})
	return c
}

func (c *Capture) record(st engine.Statement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return
	}
	c.stmts = append(c.stmts, CapturedStatement{
		SQL:    normalize(st.SQL),
		Kind:   inferKind(st.SQL),
		Params: st.Params,
		Index:  len(c.stmts),
	})
}

// End unregisters the listener and freezes the buffer. End is idempotent;
// the listener is deregistered exactly once no matter how the capture block
// exits.
func (c *Capture) End() {
	c.endOnce.Do(func() {
		c.unsubscribe()
		c.mu.Lock()
		c.open = false
		n := len(c.stmts)
		c.mu.Unlock()
		c.log.Debug("capture window closed", map[string]interface{}{
			"capture_id": c.id,
			"label":      c.label,
			"statements": n,
		})
	})
}

// Statements returns the captured statements in execution order.
func (c *Capture) Statements() []CapturedStatement {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CapturedStatement, len(c.stmts))
	copy(out, c.stmts)
	return out
}

// Report summarizes one capture window.
type Report struct {
	// TotalCount is the number of statements captured.
	TotalCount int
	// CountsByKind breaks the total down per statement kind.
	CountsByKind map[Kind]int
	// PotentialNPlusOne is set when at least one repeated SELECT pattern
	// exists and the window's SELECT count exceeds the threshold.
	PotentialNPlusOne bool
	// RepeatedPatterns lists every SELECT shape that occurred twice or
	// more, in first-seen order.
	RepeatedPatterns []PatternGroup
}

// PatternGroup is a SELECT shape and the indices of its occurrences.
type PatternGroup struct {
	Pattern string
	Indices []int
}

// Analyze computes repetition statistics over the captured statements.
func (c *Capture) Analyze() Report {
	stmts := c.Statements()

	report := Report{
		TotalCount:   len(stmts),
		CountsByKind: make(map[Kind]int),
	}

	patterns := make(map[string][]int)
	var order []string
	for _, st := range stmts {
		report.CountsByKind[st.Kind]++
		if st.Kind != KindSelect {
			continue
		}
		p := pattern(st.SQL)
		if _, seen := patterns[p]; !seen {
			order = append(order, p)
		}
		patterns[p] = append(patterns[p], st.Index)
	}

	for _, p := range order {
		if indices := patterns[p]; len(indices) >= 2 {
			report.RepeatedPatterns = append(report.RepeatedPatterns, PatternGroup{
				Pattern: p,
				Indices: indices,
			})
		}
	}

	report.PotentialNPlusOne = len(report.RepeatedPatterns) > 0 &&
		report.CountsByKind[KindSelect] > c.threshold
	return report
}

// Watch captures the statements executed while fn runs and returns the
// analysis alongside fn's error. The capture window is closed even when fn
// fails or panics, so the listener never outlives the window.
func Watch(eng *engine.Engine, log *logger.Logger, fn func() error, opts ...Option) (Report, error) {
	c := Begin(eng, log, opts...)
	defer c.End()

	err := fn()
	c.End()
	return c.Analyze(), err
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	numberRe     = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
)

// normalize collapses runs of whitespace into single spaces.
func normalize(sqlText string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sqlText, " "))
}

// inferKind classifies a statement by its leading keyword. Text the
// classifier does not recognize degrades to KindUnknown; the analyzer never
// fails the caller's real work over malformed statements.
func inferKind(sqlText string) Kind {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return KindUnknown
	}
	switch strings.ToUpper(fields[0]) {
	case "SELECT":
		return KindSelect
	case "INSERT":
		return KindInsert
	case "UPDATE":
		return KindUpdate
	case "DELETE":
		return KindDelete
	}
	return KindUnknown
}

// pattern derives the repetition key for a SELECT by replacing numeric
// literals with a wildcard, so structurally identical lookups differing
// only in their keys collapse onto one shape.
func pattern(sqlText string) string {
	return numberRe.ReplaceAllString(sqlText, "?")
}
