/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package socket

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/middleware"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	EventRunFinished = "audit.pasta1.finished"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WsHandler upgrades an authenticated request and keeps the connection
// registered under the caller's tenant until the client goes away.
func WsHandler(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	userID := middleware.UserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logs.Log(fmt.Sprintf("[ERROR][WS] WebSocket upgrade failed: %v", err))
		return
	}
	defer conn.Close()

	user := &TenantConnection{UserID: userID, TenantID: tenantID}
	connManager.AddConnection(conn, user)
	defer connManager.RemoveConnection(conn)

	logs.Log(fmt.Sprintf("[INFO][WS] User %s connected for tenant %s", userID, tenantID))

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				user.writeMutex.Lock()
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
				user.writeMutex.Unlock()
				if err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	// clients only listen; reads detect disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logs.Log(fmt.Sprintf("[INFO][WS] User %s disconnected: %v", userID, err))
			return
		}
	}
}

// NotifyRunFinished broadcasts a finished run to the tenant connections.
func NotifyRunFinished(run models.AuditRun, results []models.AuditResult) {
	connManager.BroadcastToTenant(run.TenantID, EventRunFinished, gin.H{
		"run":     run,
		"results": results,
	})
}
