/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

func TestStatusForScoreThresholds(t *testing.T) {
	cases := []struct {
		score  int
		status string
	}{
		{0, StatusPending},
		{1, StatusInconclusive},
		{20, StatusInconclusive},
		{39, StatusInconclusive},
		{40, StatusPartial},
		{79, StatusPartial},
		{80, StatusAttended},
		{100, StatusAttended},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, StatusForScore(tc.score), "score %d", tc.score)
	}
}

func TestScoreEvidence(t *testing.T) {
	cases := []struct {
		name        string
		hasEvidence bool
		matched     int
		total       int
		expected    int
	}{
		{"no evidence no keywords", false, 0, 3, 0},
		{"evidence only", true, 0, 3, 60},
		{"half keywords", true, 1, 2, 75},
		{"all keywords", true, 4, 4, 90},
		{"keywords without evidence", false, 2, 2, 30},
		{"one of three", true, 1, 3, 70},
		{"two of three", true, 2, 3, 80},
		{"zero keywords", true, 0, 0, 60},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ScoreEvidence(tc.hasEvidence, tc.matched, tc.total))
		})
	}
}

func TestScoreEvidenceExampleIsPartial(t *testing.T) {
	score := ScoreEvidence(true, 1, 2)
	assert.Equal(t, 75, score)
	assert.Equal(t, StatusPartial, StatusForScore(score))
}

func TestScoreCompanyProfileCombinations(t *testing.T) {
	complete := models.CompanyProfile{
		RazaoSocial:        "Metalúrgica Exemplo Ltda",
		CNPJ:               "12.345.678/0001-90",
		Endereco:           "Rua das Indústrias, 100",
		ResponsavelTecnico: "Eng. Ana Souza",
		Email:              "contato@exemplo.com.br",
	}

	// every subset of the five fields: score is round(matched/5*100)
	removals := []func(*models.CompanyProfile){
		func(p *models.CompanyProfile) { p.RazaoSocial = "" },
		func(p *models.CompanyProfile) { p.CNPJ = "123" },
		func(p *models.CompanyProfile) { p.Endereco = "  " },
		func(p *models.CompanyProfile) { p.ResponsavelTecnico = "" },
		func(p *models.CompanyProfile) {
			p.Email = ""
			p.Telefone = ""
		},
	}

	for mask := 0; mask < 1<<len(removals); mask++ {
		profile := complete
		absent := 0
		for bit, apply := range removals {
			if mask&(1<<bit) != 0 {
				apply(&profile)
				absent++
			}
		}

		score, missing := ScoreCompanyProfile(&profile, nil)
		matched := len(removals) - absent
		assert.Equal(t, roundInt(float64(matched)/5*100), score, "mask %05b", mask)
		assert.Len(t, missing, absent, "mask %05b", mask)
	}
}

func TestScoreCompanyProfileRequiredFields(t *testing.T) {
	profile := &models.CompanyProfile{RazaoSocial: "ACME", Telefone: "(11) 3333-4444"}

	score, missing := ScoreCompanyProfile(profile, []string{"razao_social", "contato", "cnpj"})
	assert.Equal(t, 67, score)
	assert.Equal(t, []string{"CNPJ"}, missing)

	score, missing = ScoreCompanyProfile(profile, []string{"razao_social", "inscricao_estadual"})
	assert.Equal(t, 50, score)
	assert.Equal(t, []string{"inscricao_estadual"}, missing)
}

func TestScoreCompanyProfileWithoutProfile(t *testing.T) {
	score, missing := ScoreCompanyProfile(nil, nil)
	assert.Equal(t, 0, score)
	assert.Len(t, missing, len(DefaultCompanyFields))
}
