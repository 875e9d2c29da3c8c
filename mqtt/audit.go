/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

// RunFinishedMessage is published when a Pasta-1 run completes.
type RunFinishedMessage struct {
	RunID      string         `json:"run_id"`
	TenantID   string         `json:"tenant_id"`
	Engine     string         `json:"engine"`
	ConfigHash string         `json:"config_hash"`
	Status     string         `json:"status"`
	FinishedAt *time.Time     `json:"finished_at"`
	Items      int            `json:"items"`
	Statuses   map[string]int `json:"statuses"`
}

// DocumentsChangedMessage is received when the documents of a tenant change.
type DocumentsChangedMessage struct {
	DocumentIDs []string `json:"document_ids"`
}

// RunFinishedTopic returns <prefix>/<tenant>/audit/<engine>.
func RunFinishedTopic(tenantID, engine string) string {
	return Topic(tenantID, "audit", engine)
}

func newRunFinishedMessage(run models.AuditRun, results []models.AuditResult) RunFinishedMessage {
	statuses := make(map[string]int)
	for _, result := range results {
		statuses[result.Status]++
	}
	return RunFinishedMessage{
		RunID:      run.ID,
		TenantID:   run.TenantID,
		Engine:     run.Engine,
		ConfigHash: run.ConfigHash,
		Status:     run.Status,
		FinishedAt: run.FinishedAt,
		Items:      len(results),
		Statuses:   statuses,
	}
}

// PublishRunFinished announces a completed run to the tenant topic.
func PublishRunFinished(run models.AuditRun, results []models.AuditResult) {
	topic := RunFinishedTopic(run.TenantID, run.Engine)
	if err := Publish(topic, newRunFinishedMessage(run, results)); err != nil {
		logs.Log(fmt.Sprintf("[WARNING][MQTT] Failed to publish run %s: %v", run.ID, err))
	}
}

// InitDocumentsSubscription calls onChange with the tenant of every message
// received on <prefix>/+/documents/changed.
func InitDocumentsSubscription(onChange func(tenantID string, documentIDs []string)) error {
	return SubscribeToTopic(Topic("+", "documents", "changed"), func(topic string, payload []byte) {
		handleDocumentsChanged(topic, payload, onChange)
	})
}

func handleDocumentsChanged(topic string, payload []byte, onChange func(string, []string)) {
	tenantID := tenantFromTopic(topic)
	if tenantID == "" {
		logs.Log("[WARNING][MQTT] Documents message without tenant on topic: " + topic)
		return
	}

	message := DocumentsChangedMessage{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &message); err != nil {
			logs.Log("[ERROR][MQTT] Failed to parse documents message: " + err.Error())
			return
		}
	}

	onChange(tenantID, message.DocumentIDs)
}

// tenantFromTopic extracts the segment right after the prefix.
func tenantFromTopic(topic string) string {
	prefix := Topic() + "/"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	rest := strings.TrimPrefix(topic, prefix)
	tenantID, _, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	return tenantID
}
