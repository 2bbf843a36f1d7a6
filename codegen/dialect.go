package codegen

import (
	"fmt"
	"sort"
	"strconv"
)

// Dialect renders the individual statements of the generated function.
type Dialect interface {
	// Signature opens the function.
	Signature(function string) string
	// If opens a branch taken when feature <= threshold.
	If(feature, threshold string) string
	// Else closes the taken branch and opens the other one.
	Else() string
	// Close closes a branch or the function.
	Close() string
	// Return returns a label.
	Return(label string) string
	// Feature names the i-th input value.
	Feature(i int) string
}

type cppDialect struct{}

func (cppDialect) Signature(function string) string {
	return fmt.Sprintf("std::string %s(float features[]) {", function)
}
func (cppDialect) If(feature, threshold string) string {
	return fmt.Sprintf("if (%s <= %s) {", feature, threshold)
}
func (cppDialect) Else() string               { return "} else {" }
func (cppDialect) Close() string              { return "}" }
func (cppDialect) Return(label string) string { return "return " + strconv.Quote(label) + ";" }
func (cppDialect) Feature(i int) string       { return fmt.Sprintf("features[%d]", i) }

type goDialect struct{}

func (goDialect) Signature(function string) string {
	return fmt.Sprintf("func %s(features []float64) string {", function)
}
func (goDialect) If(feature, threshold string) string {
	return fmt.Sprintf("if %s <= %s {", feature, threshold)
}
func (goDialect) Else() string               { return "} else {" }
func (goDialect) Close() string              { return "}" }
func (goDialect) Return(label string) string { return "return " + strconv.Quote(label) }
func (goDialect) Feature(i int) string       { return fmt.Sprintf("features[%d]", i) }

var dialects = map[string]Dialect{
	"cpp": cppDialect{},
	"go":  goDialect{},
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// DialectNames lists the registered dialects.
func DialectNames() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
