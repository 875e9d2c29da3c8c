/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package methods

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fatih/structs"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/middleware"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/pasta1"
)

var pasta1Engine *pasta1.Engine

// SetPasta1Engine installs the engine used by the Pasta 1 handlers.
func SetPasta1Engine(engine *pasta1.Engine) {
	pasta1Engine = engine
}

// respondError maps engine errors to the response envelope.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pasta1.ErrUnknownItem),
		errors.Is(err, pasta1.ErrDocumentNotFound),
		errors.Is(err, pasta1.ErrEvidenceNotFound):
		c.JSON(http.StatusNotFound, structs.Map(models.StatusNotFound{
			Code:    404,
			Message: err.Error(),
			Data:    nil,
		}))
	case errors.Is(err, pasta1.ErrInvalidEvidence):
		badRequest(c, err.Error())
	case errors.Is(err, pasta1.ErrDuplicateEvidence):
		c.JSON(http.StatusConflict, structs.Map(models.StatusConflict{
			Code:    409,
			Message: err.Error(),
			Data:    nil,
		}))
	case errors.Is(err, pasta1.ErrIndexUnavailable):
		c.JSON(http.StatusServiceUnavailable, structs.Map(models.StatusServiceUnavailable{
			Code:    503,
			Message: err.Error(),
			Data:    nil,
		}))
	default:
		logs.Log("[ERROR][PASTA1] " + err.Error())
		c.JSON(http.StatusInternalServerError, structs.Map(models.StatusInternalServerError{
			Code:    500,
			Message: err.Error(),
			Data:    nil,
		}))
	}
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, structs.Map(models.StatusBadRequest{
		Code:    400,
		Message: message,
		Data:    nil,
	}))
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, structs.Map(models.StatusOK{
		Code:    200,
		Message: "success",
		Data:    data,
	}))
}

// GetPasta1Config godoc
// @Summary Get the active Pasta 1 checklist
// @Description sync the checklist definition and return meta and items
// @Produce  json
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 500 {object} models.StatusInternalServerError{code=int,message=string,data=object}
// @Router /audit/pasta1/config [get]
// @Tags /audit pasta1
func GetPasta1Config(c *gin.Context) {
	meta, items, err := pasta1Engine.SyncConfig(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"meta": meta, "items": items})
}

// GetPasta1Results godoc
// @Summary Get the latest Pasta 1 results of the caller's tenant
// @Description returns run null and empty results when no run exists
// @Produce  json
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 500 {object} models.StatusInternalServerError{code=int,message=string,data=object}
// @Router /audit/pasta1/results [get]
// @Tags /audit pasta1
func GetPasta1Results(c *gin.Context) {
	run, results, err := pasta1Engine.LatestResults(c.Request.Context(), middleware.TenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"run": run, "results": results})
}

// GetPasta1Runs godoc
// @Summary Get the Pasta 1 run history of the caller's tenant
// @Produce  json
// @Param limit query string false "limit results to limit value (default 50, max 200)"
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 400 {object} models.StatusBadRequest{code=int,message=string,data=object}
// @Router /audit/pasta1/runs [get]
// @Tags /audit pasta1
func GetPasta1Runs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := pasta1Engine.ListRuns(c.Request.Context(), middleware.TenantID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"runs": runs})
}

// PostPasta1Run godoc
// @Summary Run the Pasta 1 audit for the caller's tenant
// @Produce  json
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 500 {object} models.StatusInternalServerError{code=int,message=string,data=object}
// @Router /audit/pasta1/run [post]
// @Tags /audit pasta1
func PostPasta1Run(c *gin.Context) {
	tenantID := middleware.TenantID(c)
	logs.Log("[INFO][PASTA1] Run requested by " + middleware.UserID(c) + " for tenant " + tenantID)

	run, results, err := pasta1Engine.RunAudit(c.Request.Context(), tenantID)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"run_id": run.ID, "results": results})
}

// GetPasta1Evidences godoc
// @Summary List the evidence links of a checklist item
// @Produce  json
// @Param item_id query string true "checklist item id"
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 400 {object} models.StatusBadRequest{code=int,message=string,data=object}
// @Failure 404 {object} models.StatusNotFound{code=int,message=string,data=object}
// @Router /audit/pasta1/evidences [get]
// @Tags /audit pasta1
func GetPasta1Evidences(c *gin.Context) {
	itemID := strings.TrimSpace(c.Query("item_id"))
	if itemID == "" {
		badRequest(c, "item_id is required")
		return
	}

	evidence, err := pasta1Engine.ListEvidence(c.Request.Context(), middleware.TenantID(c), itemID)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"evidences": evidence})
}

// PostPasta1Evidence godoc
// @Summary Link a tenant document to a checklist item
// @Accept  json
// @Produce  json
// @Param evidence body models.EvidenceJson true "evidence link"
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 400 {object} models.StatusBadRequest{code=int,message=string,data=object}
// @Failure 404 {object} models.StatusNotFound{code=int,message=string,data=object}
// @Failure 409 {object} models.StatusConflict{code=int,message=string,data=object}
// @Router /audit/pasta1/evidences [post]
// @Tags /audit pasta1
func PostPasta1Evidence(c *gin.Context) {
	var request models.EvidenceJson
	if err := c.ShouldBindJSON(&request); err != nil {
		badRequest(c, "request fields malformed: "+err.Error())
		return
	}

	evidence, err := pasta1Engine.AddEvidence(c.Request.Context(), middleware.TenantID(c), request)
	if err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"evidence": evidence})
}

// DeletePasta1Evidence godoc
// @Summary Remove an evidence link
// @Description removing an automatic link also excludes it from future runs
// @Produce  json
// @Param id query string true "evidence id"
// @Success 200 {object} models.StatusOK{code=int,message=string,data=object}
// @Header 200 {string} Authorization "Bearer <valid.JWT.token>"
// @Failure 400 {object} models.StatusBadRequest{code=int,message=string,data=object}
// @Failure 404 {object} models.StatusNotFound{code=int,message=string,data=object}
// @Router /audit/pasta1/evidences [delete]
// @Tags /audit pasta1
func DeletePasta1Evidence(c *gin.Context) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return
	}

	if err := pasta1Engine.RemoveEvidence(c.Request.Context(), middleware.TenantID(c), id); err != nil {
		respondError(c, err)
		return
	}

	success(c, gin.H{"id": id})
}
