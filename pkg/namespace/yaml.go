// SPDX-License-Identifier: Apache-2.0

package namespace

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParsePrefixFile decodes a prefixes.yaml document of the form:
//
//	rdf: http://www.w3.org/1999/02/22-rdf-syntax-ns#
//	rdfs: http://www.w3.org/2000/01/rdf-schema#
//
// into a prefix->URI map suitable for Store.LoadAll.
func ParsePrefixFile(data []byte) (map[string]string, error) {
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing prefix file: %w", err)
	}
	return m, nil
}
