/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
)

const writeWait = 10 * time.Second

// Message is the envelope sent to websocket clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// TenantConnection represents a WebSocket connection with user data
type TenantConnection struct {
	Conn     *websocket.Conn
	UserID   string
	TenantID string

	writeMutex sync.Mutex
}

func (tc *TenantConnection) write(payload []byte) error {
	tc.writeMutex.Lock()
	defer tc.writeMutex.Unlock()

	tc.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return tc.Conn.WriteMessage(websocket.TextMessage, payload)
}

// ConnectionManager manages all active WebSocket connections
type ConnectionManager struct {
	connections map[*websocket.Conn]*TenantConnection
	mutex       sync.RWMutex
}

var connManager = &ConnectionManager{
	connections: make(map[*websocket.Conn]*TenantConnection),
}

// GetConnectionManager returns the global connection manager instance
func GetConnectionManager() *ConnectionManager {
	return connManager
}

// AddConnection adds a new connection to the manager
func (cm *ConnectionManager) AddConnection(conn *websocket.Conn, user *TenantConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	user.Conn = conn
	cm.connections[conn] = user
}

// RemoveConnection removes a connection from the manager
func (cm *ConnectionManager) RemoveConnection(conn *websocket.Conn) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	delete(cm.connections, conn)
}

// CountTenant returns the number of open connections of a tenant
func (cm *ConnectionManager) CountTenant(tenantID string) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	count := 0
	for _, user := range cm.connections {
		if user.TenantID == tenantID {
			count++
		}
	}
	return count
}

// BroadcastToTenant sends a WebSocket message to all connections of a tenant
func (cm *ConnectionManager) BroadcastToTenant(tenantID string, messageType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: messageType, Data: data})
	if err != nil {
		logs.Log(fmt.Sprintf("[ERROR][BROADCAST] Failed to marshal message for tenant %s: %v", tenantID, err))
		return
	}

	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	for _, user := range cm.connections {
		if user.TenantID != tenantID {
			continue
		}

		go func(user *TenantConnection) {
			if err := user.write(payload); err != nil {
				logs.Log(fmt.Sprintf("[WARN][BROADCAST] Failed to send message to user %s: %v", user.UserID, err))
			}
		}(user)
	}
}
