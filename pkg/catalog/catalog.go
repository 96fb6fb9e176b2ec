// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package catalog describes the product records media is mirrored from and
// provides readers for the supported catalog sources.
package catalog

import (
	"context"
	"encoding/json"
	"sort"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// Reader yields the catalog to mirror. Query logic is entirely the reader's concern.
type Reader interface {
	Read(ctx context.Context) (Catalog, error)
}

// Catalog is one site's worth of records.
type Catalog struct {
	Site    string   `json:"site" yaml:"site"`
	Records []Record `json:"records" yaml:"records"`
}

// Record is a single product.
type Record struct {
	ID           int64     `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	PrimaryImage string    `json:"primary_image,omitempty" yaml:"primary_image,omitempty"`
	Variants     []Variant `json:"variants,omitempty" yaml:"variants,omitempty"`
	Meta         Meta      `json:"meta,omitempty" yaml:"meta,omitempty"`
}

// Variant is a secondary image keyed by a variant label such as a color.
// Path is preferred when readable, URL is the fallback.
type Variant struct {
	Key  string `json:"key" yaml:"key"`
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Meta holds custom fields. A field may carry several values.
type Meta map[string]Values

// Keys returns the field names in sorted order.
func (m Meta) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// First returns the first value of key, or "".
func (m Meta) First(key string) string {
	if v := m[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values accepts either a single scalar or a list when decoded.
type Values []string

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Values{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return errors.Errorf("decoding meta values: %w", err)
		}
		*v = list
		return nil
	default:
		return errors.Errorf("meta values must be a string or a list of strings (line %d)", node.Line)
	}
}

func (v *Values) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*v = Values{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.Errorf("meta values must be a string or a list of strings: %w", err)
	}
	*v = list
	return nil
}
