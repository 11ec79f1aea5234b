package analyzer

import (
	"strconv"
	"testing"

	"github.com/kbukum/dbkit/engine"
	"github.com/kbukum/dbkit/logger"
)

// newTestCapture builds a capture window detached from any engine so the
// analysis logic can be fed statements directly.
func newTestCapture(threshold int) *Capture {
	return &Capture{
		id:          "test",
		threshold:   threshold,
		log:         logger.Nop().WithComponent("analyzer"),
		open:        true,
		unsubscribe: func() {},
	}
}

func feed(c *Capture, stmts ...string) {
	for _, s := range stmts {
		c.record(engine.Statement{SQL: s})
	}
}

// TestInferKind classifies statements by their leading keyword,
// case-insensitively.
func TestInferKind(t *testing.T) {
	cases := []struct {
		sql  string
		want Kind
	}{
		{"SELECT * FROM users", KindSelect},
		{"select 1", KindSelect},
		{"INSERT INTO users (name) VALUES (?)", KindInsert},
		{"update users set name = ?", KindUpdate},
		{"DELETE FROM users WHERE id = 1", KindDelete},
		{"CREATE TABLE users (id INTEGER)", KindUnknown},
		{"   ", KindUnknown},
		{"", KindUnknown},
	}
	for _, tc := range cases {
		if got := inferKind(tc.sql); got != tc.want {
			t.Errorf("inferKind(%q) = %v, want %v", tc.sql, got, tc.want)
		}
	}
}

// TestNormalize collapses whitespace runs and trims the ends.
func TestNormalize(t *testing.T) {
	got := normalize("  SELECT *\n\tFROM   users\n WHERE id = 1 ")
	want := "SELECT * FROM users WHERE id = 1"
	if got != want {
		t.Errorf("normalize() = %q, want %q", got, want)
	}
}

// TestPattern replaces numeric literals with a wildcard so key-only
// variations collapse onto one shape.
func TestPattern(t *testing.T) {
	a := pattern("SELECT * FROM orders WHERE user_id = 7")
	b := pattern("SELECT * FROM orders WHERE user_id = 42")
	if a != b {
		t.Errorf("patterns differ: %q vs %q, want identical", a, b)
	}
	if a != "SELECT * FROM orders WHERE user_id = ?" {
		t.Errorf("pattern = %q, want numeric literal replaced", a)
	}

	c := pattern("SELECT price FROM items WHERE price > 9.99")
	if c != "SELECT price FROM items WHERE price > ?" {
		t.Errorf("pattern = %q, want decimal literal replaced", c)
	}
}

// TestAnalyze_FlagsRepeatedLookups raises the N+1 flag when the same
// SELECT shape runs once per parent row.
func TestAnalyze_FlagsRepeatedLookups(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	feed(c, "SELECT id FROM users")
	for i := 1; i <= 5; i++ {
		feed(c, "SELECT * FROM orders WHERE user_id = "+strconv.Itoa(i))
	}

	report := c.Analyze()
	if !report.PotentialNPlusOne {
		t.Error("PotentialNPlusOne = false, want true for 5 repeated lookups")
	}
	if len(report.RepeatedPatterns) != 1 {
		t.Fatalf("RepeatedPatterns = %d groups, want 1", len(report.RepeatedPatterns))
	}
	if got := len(report.RepeatedPatterns[0].Indices); got != 5 {
		t.Errorf("repeated group has %d occurrences, want 5", got)
	}
	if report.TotalCount != 6 {
		t.Errorf("TotalCount = %d, want 6", report.TotalCount)
	}
}

// TestAnalyze_TwoSelectsBelowThreshold stays quiet on a normal
// fetch-then-check flow.
func TestAnalyze_TwoSelectsBelowThreshold(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	feed(c,
		"SELECT * FROM orders WHERE user_id = 1",
		"SELECT * FROM orders WHERE user_id = 2",
	)

	report := c.Analyze()
	if report.PotentialNPlusOne {
		t.Error("PotentialNPlusOne = true, want false at the threshold")
	}
	// The repetition itself is still reported.
	if len(report.RepeatedPatterns) != 1 {
		t.Errorf("RepeatedPatterns = %d groups, want 1", len(report.RepeatedPatterns))
	}
}

// TestAnalyze_ThresholdTunable lets callers raise the bar per window.
func TestAnalyze_ThresholdTunable(t *testing.T) {
	c := newTestCapture(10)
	for i := 0; i < 8; i++ {
		feed(c, "SELECT * FROM orders WHERE user_id = 3")
	}

	if report := c.Analyze(); report.PotentialNPlusOne {
		t.Error("PotentialNPlusOne = true, want false under a threshold of 10")
	}
}

// TestAnalyze_DistinctShapesNotFlagged never flags windows without a
// repeated shape, however many SELECTs run.
func TestAnalyze_DistinctShapesNotFlagged(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	feed(c,
		"SELECT id FROM users",
		"SELECT id FROM orders",
		"SELECT id FROM items",
		"SELECT id FROM carts",
	)

	report := c.Analyze()
	if report.PotentialNPlusOne {
		t.Error("PotentialNPlusOne = true, want false for distinct shapes")
	}
	if len(report.RepeatedPatterns) != 0 {
		t.Errorf("RepeatedPatterns = %d groups, want 0", len(report.RepeatedPatterns))
	}
}

// TestAnalyze_CountsByKind tallies writes separately and never counts
// them toward SELECT repetition.
func TestAnalyze_CountsByKind(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	feed(c,
		"INSERT INTO users (name) VALUES (?)",
		"INSERT INTO users (name) VALUES (?)",
		"INSERT INTO users (name) VALUES (?)",
		"UPDATE users SET name = ? WHERE id = 1",
		"SELECT * FROM users",
	)

	report := c.Analyze()
	if report.CountsByKind[KindInsert] != 3 {
		t.Errorf("CountsByKind[INSERT] = %d, want 3", report.CountsByKind[KindInsert])
	}
	if report.CountsByKind[KindUpdate] != 1 {
		t.Errorf("CountsByKind[UPDATE] = %d, want 1", report.CountsByKind[KindUpdate])
	}
	if report.PotentialNPlusOne {
		t.Error("PotentialNPlusOne = true, want false: repeated INSERTs are not lookups")
	}
}

// TestAnalyze_MalformedStatement degrades to UNKNOWN instead of failing.
func TestAnalyze_MalformedStatement(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	feed(c, ";;; definitely not sql ;;;")

	report := c.Analyze()
	if report.CountsByKind[KindUnknown] != 1 {
		t.Errorf("CountsByKind[UNKNOWN] = %d, want 1", report.CountsByKind[KindUnknown])
	}
}

// TestRecord_AfterEndDropsStatements freezes the buffer once the window
// closes.
func TestRecord_AfterEndDropsStatements(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	feed(c, "SELECT 1")
	c.End()
	feed(c, "SELECT 2")

	if got := len(c.Statements()); got != 1 {
		t.Errorf("Statements() has %d entries, want 1 after End", got)
	}
}

// TestEnd_Idempotent tolerates repeated End calls.
func TestEnd_Idempotent(t *testing.T) {
	c := newTestCapture(DefaultSelectThreshold)
	c.End()
	c.End()
}
