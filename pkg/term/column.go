// SPDX-License-Identifier: Apache-2.0

package term

import "fmt"

// EncodedColumnExpr builds a SQL expression that packs a term-row alias's
// text, type, and language tag into one scalar column, NUL-separated. A
// single round trip only ever returns one value per projected variable, so
// rather than widen every generated SELECT by three columns per variable,
// callers that need the full RDF identity of a binding (result shaping,
// UPDATE template materialization) project this instead of the bare
// term_text column and decode it with DecodeColumn.
func EncodedColumnExpr(alias string) string {
	return fmt.Sprintf("%s.term_text || chr(0) || %s.term_type || chr(0) || COALESCE(%s.lang, '')", alias, alias, alias)
}

// DecodeColumn reverses EncodedColumnExpr. If s contains no NUL separator
// (the binding was not term-row-backed, e.g. a BIND expression or an
// aggregate result), text is returned unchanged with type defaulting to
// "literal" and an empty lang.
func DecodeColumn(s string) (text string, typ Type, lang string) {
	parts := make([]string, 0, 3)
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])

	if len(parts) != 3 {
		return s, TypeLiteral, ""
	}
	return parts[0], Type(parts[1]), parts[2]
}
