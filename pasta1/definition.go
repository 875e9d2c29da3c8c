/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nqd/flat"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const EngineName = "pasta1"

//go:embed checklist/pasta1.json
var checklistFS embed.FS

// Item is a checklist item as written in the definition file.
type Item struct {
	ItemID           string          `json:"item_id"`
	Category         string          `json:"category"`
	Name             string          `json:"name"`
	MinEvidence      int             `json:"min_evidence"`
	RequiredFields   []string        `json:"required_fields"`
	ExpectedEvidence []string        `json:"expected_evidence"`
	Keywords         []string        `json:"keywords"`
	Raw              json.RawMessage `json:"-"`
}

// Definition is a parsed checklist file together with its content hash.
type Definition struct {
	Engine  string
	Version string
	Items   []Item
	Hash    string

	index map[string]int
}

type rawDefinition struct {
	Engine  string            `json:"engine"`
	Version string            `json:"version"`
	Items   []json.RawMessage `json:"items"`
}

// DefaultDefinition returns the checklist embedded in the binary.
func DefaultDefinition() (*Definition, error) {
	data, err := checklistFS.ReadFile("checklist/pasta1.json")
	if err != nil {
		return nil, errors.Wrap(err, "read embedded checklist")
	}
	return ParseDefinition(data)
}

// LoadDefinition reads a JSON or YAML checklist file. An empty path selects
// the embedded checklist.
func LoadDefinition(path string) (*Definition, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultDefinition()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read checklist")
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, err
		}
	}

	return ParseDefinition(data)
}

// ParseDefinition decodes a JSON checklist and computes its hash.
func ParseDefinition(data []byte) (*Definition, error) {
	var raw rawDefinition
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse checklist")
	}

	def := &Definition{
		Engine:  raw.Engine,
		Version: raw.Version,
		Items:   make([]Item, 0, len(raw.Items)),
		index:   make(map[string]int, len(raw.Items)),
	}
	if def.Engine == "" {
		def.Engine = EngineName
	}

	for position, rawItem := range raw.Items {
		var item Item
		if err := json.Unmarshal(rawItem, &item); err != nil {
			return nil, errors.Wrapf(err, "parse checklist item %d", position)
		}
		item.ItemID = strings.TrimSpace(item.ItemID)
		if item.ItemID == "" {
			return nil, fmt.Errorf("checklist item %d has no item_id", position)
		}
		if _, exists := def.index[item.ItemID]; exists {
			return nil, fmt.Errorf("duplicate checklist item %s", item.ItemID)
		}
		item.Raw = append(json.RawMessage(nil), rawItem...)

		def.index[item.ItemID] = len(def.Items)
		def.Items = append(def.Items, item)
	}

	hash, err := HashDefinition(data)
	if err != nil {
		return nil, err
	}
	def.Hash = hash

	return def, nil
}

// HashDefinition hashes the flattened key/value pairs of a JSON document, so
// formatting and key order do not change the result.
func HashDefinition(data []byte) (string, error) {
	var nested map[string]interface{}
	if err := json.Unmarshal(data, &nested); err != nil {
		return "", errors.Wrap(err, "parse checklist for hashing")
	}

	flattened, err := flat.Flatten(nested, nil)
	if err != nil {
		return "", errors.Wrap(err, "flatten checklist")
	}

	keys := make([]string, 0, len(flattened))
	for key := range flattened {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	hasher := sha256.New()
	for _, key := range keys {
		fmt.Fprintf(hasher, "%s=%v\n", key, flattened[key])
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Item returns the checklist item with the given ID.
func (d *Definition) Item(itemID string) (Item, bool) {
	position, ok := d.index[itemID]
	if !ok {
		return Item{}, false
	}
	return d.Items[position], true
}

// ConfigRows converts the definition into the rows stored by config sync.
func (d *Definition) ConfigRows() []models.AuditConfigItem {
	rows := make([]models.AuditConfigItem, 0, len(d.Items))
	for position, item := range d.Items {
		rows = append(rows, models.AuditConfigItem{
			Engine:           d.Engine,
			ItemID:           item.ItemID,
			Position:         position,
			Category:         item.Category,
			Name:             item.Name,
			MinEvidence:      item.MinEvidence,
			RequiredFields:   nonNil(item.RequiredFields),
			ExpectedEvidence: nonNil(item.ExpectedEvidence),
			Keywords:         nonNil(item.Keywords),
			Raw:              item.Raw,
			ConfigHash:       d.Hash,
		})
	}
	return rows
}

func yamlToJSON(data []byte) ([]byte, error) {
	var decoded map[string]interface{}
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, errors.Wrap(err, "parse yaml checklist")
	}
	encoded, err := json.Marshal(decoded)
	if err != nil {
		return nil, errors.Wrap(err, "convert yaml checklist")
	}
	return encoded, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
