/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"math"
	"strings"
	"unicode"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const (
	CompanyProfileItemID = "1.1"

	EvidenceBaseScore = 60
	KeywordMaxScore   = 30

	StatusAttended     = "PROVAVELMENTE_ATENDIDO"
	StatusPartial      = "PROVAVELMENTE_PARCIAL"
	StatusPending      = "PROVAVELMENTE_PENDENTE"
	StatusInconclusive = "INCONCLUSIVO"
)

// DefaultCompanyFields are checked when item 1.1 lists no required fields.
var DefaultCompanyFields = []string{"razao_social", "cnpj", "endereco", "responsavel_tecnico", "contato"}

var companyFieldLabels = map[string]string{
	"razao_social":        "razão social",
	"cnpj":                "CNPJ",
	"endereco":            "endereço",
	"responsavel_tecnico": "responsável técnico",
	"contato":             "contato (e-mail ou telefone)",
}

var companyPredicates = map[string]func(*models.CompanyProfile) bool{
	"razao_social": func(p *models.CompanyProfile) bool {
		return strings.TrimSpace(p.RazaoSocial) != ""
	},
	"cnpj": func(p *models.CompanyProfile) bool {
		return countDigits(p.CNPJ) == 14
	},
	"endereco": func(p *models.CompanyProfile) bool {
		return strings.TrimSpace(p.Endereco) != ""
	},
	"responsavel_tecnico": func(p *models.CompanyProfile) bool {
		return strings.TrimSpace(p.ResponsavelTecnico) != ""
	},
	"contato": func(p *models.CompanyProfile) bool {
		return strings.Contains(p.Email, "@") || countDigits(p.Telefone) >= 8
	},
}

// StatusForScore maps a score to its status label. Scores between 1 and 39
// are INCONCLUSIVO.
func StatusForScore(score int) string {
	switch {
	case score >= 80:
		return StatusAttended
	case score >= 40:
		return StatusPartial
	case score == 0:
		return StatusPending
	default:
		return StatusInconclusive
	}
}

// ScoreEvidence computes min(100, base + keywordScore).
func ScoreEvidence(hasEvidence bool, matchedKeywords, totalKeywords int) int {
	base := 0
	if hasEvidence {
		base = EvidenceBaseScore
	}

	keywordScore := 0
	if totalKeywords > 0 {
		keywordScore = roundInt(float64(matchedKeywords) / float64(totalKeywords) * KeywordMaxScore)
	}

	if base+keywordScore > 100 {
		return 100
	}
	return base + keywordScore
}

// ScoreCompanyProfile checks the named fields of the profile and returns the
// score with the labels of the fields that failed.
func ScoreCompanyProfile(profile *models.CompanyProfile, fields []string) (int, []string) {
	if len(fields) == 0 {
		fields = DefaultCompanyFields
	}

	matched := 0
	missing := []string{}
	for _, field := range fields {
		predicate, known := companyPredicates[field]
		if profile != nil && known && predicate(profile) {
			matched++
			continue
		}
		missing = append(missing, companyFieldLabel(field))
	}

	return roundInt(float64(matched) / float64(len(fields)) * 100), missing
}

func companyFieldLabel(field string) string {
	if label, ok := companyFieldLabels[field]; ok {
		return label
	}
	return field
}

func countDigits(value string) int {
	digits := 0
	for _, r := range value {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits
}

func roundInt(value float64) int {
	return int(math.Round(value))
}
