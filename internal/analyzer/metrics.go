package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/huangsam/monoscope/schema"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Node types that open a new function scope.
var functionNodes = map[string]struct{}{
	"function_declaration":           {},
	"function_expression":            {},
	"function":                       {},
	"generator_function":             {},
	"generator_function_declaration": {},
	"arrow_function":                 {},
	"method_definition":              {},
}

// Node types that add one independent path.
var decisionNodes = map[string]struct{}{
	"if_statement":       {},
	"for_statement":      {},
	"for_in_statement":   {},
	"while_statement":    {},
	"do_statement":       {},
	"switch_case":        {},
	"catch_clause":       {},
	"ternary_expression": {},
}

// Logical operators that short-circuit and therefore branch.
var logicalOperators = map[string]struct{}{
	"&&": {},
	"||": {},
	"??": {},
}

// Literal node types counted as a single operand without descending into them.
var atomNodes = map[string]struct{}{
	"string":          {},
	"template_string": {},
	"number":          {},
	"regex":           {},
}

// fileMetrics accumulates counts during a single syntax tree walk.
type fileMetrics struct {
	src       []byte
	codeLines map[uint32]struct{}
	functions []int // cyclomatic complexity per function
	decisions int
	operators map[string]int
	operands  map[string]int
	debuggers int
	consoles  int
}

// measure parses one JavaScript file and computes its record. The file path
// is stored as given.
func measure(ctx context.Context, file string, src []byte, rules lintRules) (schema.FileRecord, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return schema.FileRecord{}, fmt.Errorf("failed to parse %s: %w", file, err)
	}
	defer tree.Close()

	m := &fileMetrics{
		src:       src,
		codeLines: make(map[uint32]struct{}),
		operators: make(map[string]int),
		operands:  make(map[string]int),
	}
	m.walk(tree.RootNode(), -1)

	record := schema.FileRecord{
		File:           file,
		SLOC:           len(m.codeLines),
		Functions:      len(m.functions),
		Cyclomatic:     1 + m.decisions,
		HalsteadVolume: round2(m.volume()),
	}
	record.Maintainability = maintainability(record.HalsteadVolume, record.Cyclomatic, record.SLOC)
	record.LintMessages = m.lint(rules)
	return record, nil
}

func (m *fileMetrics) walk(n *sitter.Node, fn int) {
	nodeType := n.Type()
	if nodeType == "comment" {
		return
	}

	if _, ok := functionNodes[nodeType]; ok && n.IsNamed() {
		m.functions = append(m.functions, 1)
		fn = len(m.functions) - 1
	}
	if m.isDecision(n, nodeType) {
		m.decisions++
		if fn >= 0 {
			m.functions[fn]++
		}
	}

	switch nodeType {
	case "debugger_statement":
		m.debuggers++
	case "member_expression":
		if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() == "identifier" && obj.Content(m.src) == "console" {
			m.consoles++
		}
	}

	if _, ok := atomNodes[nodeType]; ok {
		m.markLines(n)
		m.operands[n.Content(m.src)]++
		return
	}

	count := int(n.ChildCount())
	if count == 0 {
		if n.StartByte() == n.EndByte() {
			return
		}
		m.markLines(n)
		if n.IsNamed() {
			m.operands[n.Content(m.src)]++
		} else if nodeType != "" {
			m.operators[nodeType]++
		}
		return
	}
	for i := range count {
		m.walk(n.Child(i), fn)
	}
}

func (m *fileMetrics) isDecision(n *sitter.Node, nodeType string) bool {
	if _, ok := decisionNodes[nodeType]; ok && n.IsNamed() {
		// switch_case with no value is the default branch.
		if nodeType == "switch_case" {
			return n.ChildByFieldName("value") != nil
		}
		return true
	}
	if nodeType == "binary_expression" {
		if op := n.ChildByFieldName("operator"); op != nil {
			_, ok := logicalOperators[op.Type()]
			return ok
		}
	}
	return false
}

func (m *fileMetrics) markLines(n *sitter.Node) {
	for row := n.StartPoint().Row; row <= n.EndPoint().Row; row++ {
		m.codeLines[row] = struct{}{}
	}
}

// volume is the Halstead volume N * log2(n).
func (m *fileMetrics) volume() float64 {
	var length int
	for _, c := range m.operators {
		length += c
	}
	for _, c := range m.operands {
		length += c
	}
	vocabulary := len(m.operators) + len(m.operands)
	if vocabulary < 2 {
		return 0
	}
	return float64(length) * math.Log2(float64(vocabulary))
}

func (m *fileMetrics) lint(rules lintRules) int {
	var messages int
	if rules.noDebugger {
		messages += m.debuggers
	}
	if rules.noConsole {
		messages += m.consoles
	}
	if rules.complexity > 0 {
		for _, c := range m.functions {
			if c > rules.complexity {
				messages++
			}
		}
	}
	if rules.maxLen > 0 {
		for line := range bytes.SplitSeq(m.src, []byte("\n")) {
			if utf8.RuneCount(bytes.TrimRight(line, "\r")) > rules.maxLen {
				messages++
			}
		}
	}
	return messages
}

// maintainability is the 0-100 normalized maintainability index.
func maintainability(volume float64, cyclomatic, sloc int) float64 {
	if sloc == 0 {
		return 100
	}
	mi := 171 - 5.2*math.Log(math.Max(volume, 1)) - 0.23*float64(cyclomatic) - 16.2*math.Log(float64(sloc))
	return round2(math.Max(0, math.Min(100, mi*100/171)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
