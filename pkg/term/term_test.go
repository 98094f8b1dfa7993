// SPDX-License-Identifier: Apache-2.0

package term

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveUUIDIsDeterministic(t *testing.T) {
	t.Parallel()

	u1 := DeriveUUID("hello", TypeLiteral, "", nil)
	u2 := DeriveUUID("hello", TypeLiteral, "", nil)
	assert.Equal(t, u1, u2)
}

func TestDeriveUUIDDistinguishesType(t *testing.T) {
	t.Parallel()

	uURI := DeriveUUID("http://example.org/a", TypeURI, "", nil)
	uLit := DeriveUUID("http://example.org/a", TypeLiteral, "", nil)
	assert.NotEqual(t, uURI, uLit)
}

func TestDeriveUUIDDistinguishesLang(t *testing.T) {
	t.Parallel()

	uEn := DeriveUUID("chat", TypeLiteral, "en", nil)
	uFr := DeriveUUID("chat", TypeLiteral, "fr", nil)
	uNone := DeriveUUID("chat", TypeLiteral, "", nil)
	assert.NotEqual(t, uEn, uFr)
	assert.NotEqual(t, uEn, uNone)
}

func TestDeriveUUIDDistinguishesDatatype(t *testing.T) {
	t.Parallel()

	dt1 := DeriveUUID("http://www.w3.org/2001/XMLSchema#integer", TypeURI, "", nil)
	dt2 := DeriveUUID("http://www.w3.org/2001/XMLSchema#string", TypeURI, "", nil)

	u1 := DeriveUUID("42", TypeLiteral, "", &dt1)
	u2 := DeriveUUID("42", TypeLiteral, "", &dt2)
	uNone := DeriveUUID("42", TypeLiteral, "", nil)

	assert.NotEqual(t, u1, u2)
	assert.NotEqual(t, u1, uNone)
}

func TestNormalizeBeforeHashing(t *testing.T) {
	t.Parallel()

	// "é" as a single codepoint (NFC) vs "e" + combining acute (NFD)
	nfc := "café"
	nfd := "café"
	require.NotEqual(t, nfc, nfd, "test fixture must differ byte-for-byte")

	assert.Equal(t, DeriveUUID(nfc, TypeLiteral, "", nil), DeriveUUID(nfd, TypeLiteral, "", nil))
}

func TestNewNormalizesText(t *testing.T) {
	t.Parallel()

	tm := New("café", TypeLiteral, "", nil)
	assert.Equal(t, "café", tm.Text)
}

func TestKeyOfRoundTrips(t *testing.T) {
	t.Parallel()

	tm := New("http://example.org/a", TypeURI, "", nil)
	k := tm.KeyOf()
	assert.Equal(t, tm.Text, k.Text)
	assert.Equal(t, tm.Type, k.Type)
	assert.Empty(t, k.Datatype)
}
