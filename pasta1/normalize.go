/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

// Normalize folds accents and case and collapses whitespace, so "Proteção"
// and "PROTECAO" compare equal.
func Normalize(value string) string {
	// transformers keep state; a fresh chain per call keeps this goroutine safe
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, value)
	if err != nil {
		folded = value
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// ContainsKeyword reports whether keyword occurs in an already normalized
// haystack.
func ContainsKeyword(haystack, keyword string) bool {
	needle := Normalize(keyword)
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}

// DocumentHaystack is the normalized "title category fileName" text matched
// by the keyword linker.
func DocumentHaystack(document models.Document) string {
	return Normalize(document.Title + " " + document.Category + " " + document.FileName)
}

// ItemKeywords returns the item keywords, falling back to the item name.
func ItemKeywords(item Item) []string {
	keywords := make([]string, 0, len(item.Keywords))
	for _, keyword := range item.Keywords {
		if strings.TrimSpace(keyword) != "" {
			keywords = append(keywords, keyword)
		}
	}
	if len(keywords) == 0 && strings.TrimSpace(item.Name) != "" {
		keywords = append(keywords, item.Name)
	}
	return keywords
}
