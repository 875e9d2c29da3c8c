/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package pasta1

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

// AddEvidence links a tenant document to a checklist item.
func (e *Engine) AddEvidence(ctx context.Context, tenantID string, request models.EvidenceJson) (*models.AuditItemEvidence, error) {
	itemID := strings.TrimSpace(request.ItemID)
	if _, ok := e.Definition.Item(itemID); !ok {
		return nil, ErrUnknownItem
	}

	documentID := strings.TrimSpace(request.DocumentID)
	document, err := e.Repo.GetDocument(ctx, tenantID, documentID)
	if err != nil {
		return nil, errors.Wrap(err, "load document")
	}
	if document == nil {
		return nil, ErrDocumentNotFound
	}

	evidenceType, err := normalizeEvidenceType(request.Type)
	if err != nil {
		return nil, err
	}

	evidence := models.AuditItemEvidence{
		TenantID:   tenantID,
		ItemID:     itemID,
		DocumentID: document.ID,
		Type:       evidenceType,
		Note:       strings.TrimSpace(request.Note),
		CreatedAt:  e.now(),
	}
	id, err := e.Repo.CreateEvidence(ctx, evidence)
	if err != nil {
		if errors.Is(err, ErrDuplicateEvidence) {
			return nil, ErrDuplicateEvidence
		}
		return nil, errors.Wrap(err, "create evidence")
	}
	evidence.ID = id

	return &evidence, nil
}

// RemoveEvidence deletes a link. Removing an automatic link also records an
// exclusion so the auto-linker will not add it back.
func (e *Engine) RemoveEvidence(ctx context.Context, tenantID string, id int64) error {
	evidence, err := e.Repo.GetEvidence(ctx, tenantID, id)
	if err != nil {
		return errors.Wrap(err, "load evidence")
	}
	if evidence == nil {
		return ErrEvidenceNotFound
	}

	exclude := evidence.Type == models.EvidenceTypeAuto
	if err := e.Repo.DeleteEvidence(ctx, *evidence, exclude); err != nil {
		return errors.Wrap(err, "delete evidence")
	}

	if exclude {
		logs.Log(fmt.Sprintf("[INFO][PASTA1] Excluded document %s from item %s for tenant %s", evidence.DocumentID, evidence.ItemID, tenantID))
	}
	return nil
}

// ListEvidence returns the links of one checklist item.
func (e *Engine) ListEvidence(ctx context.Context, tenantID, itemID string) ([]models.AuditItemEvidence, error) {
	itemID = strings.TrimSpace(itemID)
	if _, ok := e.Definition.Item(itemID); !ok {
		return nil, ErrUnknownItem
	}

	evidence, err := e.Repo.ListEvidence(ctx, tenantID, itemID)
	if err != nil {
		return nil, errors.Wrap(err, "list evidence")
	}
	return evidence, nil
}

// normalizeEvidenceType maps a requested type to Manual or Auto, ignoring case.
func normalizeEvidenceType(value string) (string, error) {
	switch value = strings.TrimSpace(value); {
	case value == "", strings.EqualFold(value, models.EvidenceTypeManual):
		return models.EvidenceTypeManual, nil
	case strings.EqualFold(value, models.EvidenceTypeAuto):
		return models.EvidenceTypeAuto, nil
	}
	return "", ErrInvalidEvidence
}
