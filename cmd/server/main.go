package main

import (
	"strings"

	"matstock-backend/internal/audit"
	"matstock-backend/internal/auth"
	"matstock-backend/internal/config"
	"matstock-backend/internal/database"
	"matstock-backend/internal/fifo"
	"matstock-backend/internal/grn"
	"matstock-backend/internal/issue"
	"matstock-backend/internal/material"
	"matstock-backend/internal/ml"
	"matstock-backend/internal/report"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database init failed")
	}

	ledger := fifo.NewLedger(issue.NewStore(db))
	mlClient := ml.NewClient(cfg.MLServiceURL, cfg.MLTimeout)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			logrus.WithError(err).Error("unhandled error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler(db))

	// Materials
	protected.Post("/materials", material.CreateMaterialHandler(db))
	protected.Get("/materials", material.ListMaterialsHandler(db))
	protected.Get("/materials/:id", material.GetMaterialHandler(db))
	protected.Put("/materials/:id", material.UpdateMaterialHandler(db))
	protected.Delete("/materials/:id", material.DeleteMaterialHandler(db))
	protected.Put("/materials/:id/restore", material.RestoreMaterialHandler(db))

	// GRNs (received lots)
	protected.Post("/grns", grn.CreateGRNHandler(db))
	protected.Get("/grns", grn.ListGRNsHandler(db))
	protected.Get("/grns/:id", grn.GetGRNHandler(db))
	protected.Put("/grns/:id", grn.UpdateGRNHandler(db))
	protected.Delete("/grns/:id", grn.DeleteGRNHandler(db))
	protected.Put("/grns/:id/restore", grn.RestoreGRNHandler(db))

	// Issue notes (FIFO consumption)
	protected.Post("/issue-notes/preview", issue.PreviewIssueNoteHandler(db, ledger))
	protected.Post("/issue-notes", issue.CreateIssueNoteHandler(db, ledger))
	protected.Get("/issue-notes", issue.ListIssueNotesHandler(db))
	protected.Get("/issue-notes/:id", issue.GetIssueNoteHandler(db))
	protected.Put("/issue-notes/:id", issue.UpdateIssueNoteHandler(db))
	protected.Delete("/issue-notes/:id", issue.DeleteIssueNoteHandler(db))

	// Reports
	protected.Get("/reports", report.StockReportHandler(db))
	protected.Get("/stock/current", report.CurrentStockHandler(db))
	protected.Get("/stock/movements", report.StockMovementsHandler(db))
	protected.Get("/stock/movements/export", report.ExportMovementsHandler(db))
	protected.Get("/stock/valuation", report.StockValuationHandler(db))

	// Forecasting
	protected.Get("/sku/:skuId/forecast", ml.ForecastHandler(mlClient))
	protected.Get("/sku/:skuId/reorder", ml.ReorderHandler(mlClient))
	protected.Get("/stock/with-ml", ml.StockWithMLHandler(db, mlClient))
	protected.Get("/materials/:id/with-ml", ml.MaterialWithMLHandler(db, mlClient))

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(db))

	logrus.WithField("port", cfg.HTTPPort).Info("server listening")
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.Fatal(err)
	}
}
