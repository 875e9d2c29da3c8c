/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/structs"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/walterneylp/voltdocs19022026-sub000/configuration"
	"github.com/walterneylp/voltdocs19022026-sub000/db"
	"github.com/walterneylp/voltdocs19022026-sub000/logs"
	"github.com/walterneylp/voltdocs19022026-sub000/methods"
	"github.com/walterneylp/voltdocs19022026-sub000/metrics"
	"github.com/walterneylp/voltdocs19022026-sub000/middleware"
	"github.com/walterneylp/voltdocs19022026-sub000/models"
	"github.com/walterneylp/voltdocs19022026-sub000/mqtt"
	"github.com/walterneylp/voltdocs19022026-sub000/socket"
)

const sweepSchedule = "@every 5m"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "voltdocs",
		Short:         "VoltDocs Pasta 1 audit service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// init configuration
			if err := configuration.Load(); err != nil {
				return err
			}

			// init logger
			logs.Init("voltdocs", configuration.Config.LogLevel, configuration.Config.LogFormat)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			logs.Sync()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	root.AddCommand(
		newServeCmd(),
		newSyncConfigCmd(),
		newRunAuditCmd(),
		newReindexCmd(),
		newSweepRunsCmd(),
		newSetProfileCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	app, err := newApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	app.engine.Notify = func(run models.AuditRun, results []models.AuditResult) {
		socket.NotifyRunFinished(run, results)
		mqtt.PublishRunFinished(run, results)
	}

	if _, _, err := app.engine.SyncConfig(ctx); err != nil {
		return err
	}

	// init mqtt, reindex tenants whose documents changed
	if mqtt.Init() {
		defer mqtt.Close()
		if err := mqtt.InitDocumentsSubscription(app.reindexLater); err != nil {
			logs.Log("[WARNING][MQTT] Documents subscription failed: " + err.Error())
		}
	}

	// sweep runs left in executando
	c := cron.New()
	if _, err := c.AddFunc(sweepSchedule, func() {
		if _, err := app.engine.SweepStaleRuns(context.Background(), configuration.Config.RunTimeout); err != nil {
			logs.Log("[ERROR][CRON] " + err.Error())
		}
	}); err != nil {
		return err
	}
	c.Start()
	defer c.Stop()

	// create router
	router := createRouter(app)

	// run server
	logs.Log("[INFO][HTTP] Listening on " + configuration.Config.ListenAddress)
	return router.Run(configuration.Config.ListenAddress)
}

func createRouter(app *application) *gin.Engine {
	// disable log to stdout when running in release mode
	if gin.Mode() == gin.ReleaseMode {
		gin.DefaultWriter = io.Discard
	}

	// init routers
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(
		gin.LoggerWithWriter(gin.DefaultWriter),
		gin.Recovery(),
	)

	// add default compression
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// cors configuration only in debug mode GIN_MODE=debug (default)
	if gin.Mode() == gin.DebugMode {
		// gin gonic cors conf
		corsConf := cors.DefaultConfig()
		corsConf.AllowHeaders = []string{"Authorization", "Content-Type", "Accept"}
		corsConf.AllowAllOrigins = true
		router.Use(cors.New(corsConf))
	}

	// define api group
	api := router.Group("/")

	// health endpoint (not authenticated)
	api.GET("/health", func(c *gin.Context) {
		if app.usesDatabase() {
			if err := db.HealthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"message": err.Error(),
					"status":  "unhealthy",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "healthy",
			"status":  "ok",
		})
	})
	api.GET("/metrics", metrics.Handler())

	authenticated := api.Group("/", middleware.InstanceJWT().MiddlewareFunc(), middleware.ResolveTenant())
	{
		// run notifications
		authenticated.GET("/ws", socket.WsHandler)

		audit := authenticated.Group("/audit/pasta1")
		read := app.roles.RequireCapabilities(middleware.CapabilityRead)
		evidence := app.roles.RequireCapabilities(middleware.CapabilityRead, middleware.CapabilityEvidence)

		audit.GET("/config", read, methods.GetPasta1Config)
		audit.GET("/results", read, methods.GetPasta1Results)
		audit.GET("/runs", read, methods.GetPasta1Runs)
		audit.GET("/evidences", read, methods.GetPasta1Evidences)
		audit.POST("/evidences", evidence, methods.PostPasta1Evidence)
		audit.DELETE("/evidences", evidence, methods.DeletePasta1Evidence)
		audit.POST("/run", app.roles.RequireCapabilities(middleware.CapabilityRun), methods.PostPasta1Run)
		audit.POST("/index", app.roles.RequireCapabilities(middleware.CapabilityIndex), methods.PostPasta1Index)
	}

	// handle missing endpoint
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, structs.Map(models.StatusNotFound{
			Code:    404,
			Message: "API not found",
			Data:    nil,
		}))
	})

	return router
}

// reindexLater rebuilds the index of a tenant in the background.
func (a *application) reindexLater(tenantID string, documentIDs []string) {
	if a.reindexer == nil {
		return
	}
	if !a.reindexer.Schedule(tenantID, documentIDs...) {
		logs.Log(fmt.Sprintf("[INFO][INDEX] Reindex of tenant %s queued behind the running one", tenantID))
	}
}
