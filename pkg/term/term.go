// SPDX-License-Identifier: Apache-2.0

// Package term defines the canonical identity of RDF nodes stored by the
// quad store: the deterministic UUID derivation described in the storage
// schema's Term invariant, and the in-memory Term value itself.
//
// UUID derivation is grounded on the reference implementation's term
// cache (original_source/vitalgraph/db/postgresql/postgresql_term_cache.py),
// which hashes the normalized lexical form together with type/lang/datatype
// before ever touching the database; the shape of a hash-identified node
// row is grounded on the cayley Postgres backend's nodes table
// (other_examples/*cayleygraph-cayley*postgres.go), which keys nodes by a
// deterministic hash of their value rather than a serial id.
package term

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Type is the RDF node kind a Term represents.
type Type string

const (
	TypeURI       Type = "uri"
	TypeLiteral   Type = "literal"
	TypeBlankNode Type = "bnode"
	TypeGraph     Type = "graph"
)

// namespaceUUID is the fixed namespace all term UUIDs are derived from.
// It is itself a stable, arbitrarily chosen UUID baked into the schema;
// changing it would silently re-identify every term already stored.
var namespaceUUID = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// Term is the canonical identity of any RDF node ever referenced within a
// space. Terms are immutable once created: the UUID is a pure function of
// (Text, Type, Lang, DatatypeID).
type Term struct {
	UUID       uuid.UUID
	Text       string
	Type       Type
	Lang       string   // empty when not a language-tagged literal
	DatatypeID *uuid.UUID // nil unless Type == TypeLiteral with an explicit datatype
	CreatedAt  time.Time
}

// Normalize applies NFC Unicode normalization to a lexical form prior to
// hashing or storage, so visually identical strings that differ only in
// their Unicode normalization form dictionary-dedupe to the same term.
func Normalize(text string) string {
	return norm.NFC.String(text)
}

// DeriveUUID computes the deterministic term UUID for a given
// (text, type, lang, datatype) tuple. It is a pure function: the same
// input always yields the same UUID, in any process, at any time. This is
// the whole reason term insertion is idempotent and safely parallelizable
// without coordination.
func DeriveUUID(text string, typ Type, lang string, datatype *uuid.UUID) uuid.UUID {
	dt := ""
	if datatype != nil {
		dt = datatype.String()
	}
	key := fmt.Sprintf("%s\x00%s\x00%s\x00%s", Normalize(text), typ, lang, dt)
	return uuid.NewSHA1(namespaceUUID, []byte(key))
}

// New builds a Term with its UUID computed from the rest of its fields.
func New(text string, typ Type, lang string, datatype *uuid.UUID) Term {
	normalized := Normalize(text)
	return Term{
		UUID:       DeriveUUID(normalized, typ, lang, datatype),
		Text:       normalized,
		Type:       typ,
		Lang:       lang,
		DatatypeID: datatype,
	}
}

// Key identifies a term by its defining tuple, used as the term cache key.
type Key struct {
	Text     string
	Type     Type
	Lang     string
	Datatype string // uuid.String(), or "" when absent
}

// KeyOf returns the cache key for a Term.
func (t Term) KeyOf() Key {
	dt := ""
	if t.DatatypeID != nil {
		dt = t.DatatypeID.String()
	}
	return Key{Text: t.Text, Type: t.Type, Lang: t.Lang, Datatype: dt}
}
