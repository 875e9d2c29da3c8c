/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package utils

import (
	"fmt"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
)

// LogError logs an error wrapped with github.com/pkg/errors, stack included
// when the log level is debug.
func LogError(err error) {
	if err == nil {
		return
	}
	logs.Log("[ERROR] " + err.Error())
	logs.Log(fmt.Sprintf("[DEBUG] %+v", err))
}
