// SPDX-License-Identifier: Apache-2.0

package resultshape

import "encoding/json"

// MarshalJSON renders a Value as a SPARQL 1.1 Query Results JSON Format
// term: {"type", "value"} plus "datatype" for a typed literal or
// "xml:lang" for a language-tagged one.
func (v Value) MarshalJSON() ([]byte, error) {
	m := map[string]string{"type": v.Type, "value": v.Value}
	if v.Datatype != "" {
		m["datatype"] = v.Datatype
	}
	if v.Lang != "" {
		m["xml:lang"] = v.Lang
	}
	return json.Marshal(m)
}

type selectWire struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// MarshalJSON renders a SelectResult as {"head":{"vars":[...]},
// "results":{"bindings":[...]}}, the SPARQL 1.1 SELECT results shape.
func (r SelectResult) MarshalJSON() ([]byte, error) {
	var w selectWire
	w.Head.Vars = r.Vars
	w.Results.Bindings = r.Bindings
	if w.Results.Bindings == nil {
		w.Results.Bindings = []Binding{}
	}
	return json.Marshal(w)
}

type tripleWire struct {
	Subject   Value `json:"subject"`
	Predicate Value `json:"predicate"`
	Object    Value `json:"object"`
}

// MarshalJSON renders a ConstructResult as a JSON array of triple dicts,
// one per produced triple.
func (r ConstructResult) MarshalJSON() ([]byte, error) {
	out := make([]tripleWire, len(r.Triples))
	for i, t := range r.Triples {
		out[i] = tripleWire{Subject: t.Subject, Predicate: t.Predicate, Object: t.Object}
	}
	return json.Marshal(out)
}

// MarshalJSON renders an AskResult as {"ask": bool}.
func (r AskResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]bool{"ask": r.Ask})
}
