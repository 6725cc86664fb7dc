package main

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"matstock-backend/internal/config"
	"matstock-backend/internal/database"

	"github.com/sirupsen/logrus"
)

// Writes the forecasting training set: issued quantities of the last 365
// days grouped per day and material name, as CSV at ML_DATA_PATH.
func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	db, err := database.Open(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("database init failed")
	}

	type row struct {
		Date   string
		SkuID  string
		QtyOut string
	}
	var rows []row
	err = db.Raw(`
		SELECT
			TO_CHAR(DATE(n.issue_date), 'YYYY-MM-DD') AS date,
			COALESCE(m.name, m.id::text)              AS sku_id,
			SUM(i.quantity)::text                     AS qty_out
		FROM issue_items i
		JOIN issue_notes n ON n.id = i.issue_note_id
		JOIN materials   m ON m.id = i.material_id
		WHERE n.issue_date >= CURRENT_DATE - INTERVAL '365 days'
		GROUP BY DATE(n.issue_date), COALESCE(m.name, m.id::text)
		ORDER BY DATE(n.issue_date), COALESCE(m.name, m.id::text)
	`).Scan(&rows).Error
	if err != nil {
		logrus.WithError(err).Fatal("export query failed")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.MLDataPath), 0o755); err != nil {
		logrus.WithError(err).Fatal("create export directory failed")
	}
	f, err := os.Create(cfg.MLDataPath)
	if err != nil {
		logrus.WithError(err).Fatal("create export file failed")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "sku_id", "qty_out"}); err != nil {
		logrus.WithError(err).Fatal("write header failed")
	}
	for _, r := range rows {
		sku := r.SkuID
		if sku == "" {
			sku = "UNKNOWN"
		}
		qty := r.QtyOut
		if qty == "" {
			qty = "0"
		}
		if err := w.Write([]string{r.Date, sku, qty}); err != nil {
			logrus.WithError(err).Fatal("write row failed")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		logrus.WithError(err).Fatal("flush failed")
	}

	logrus.WithFields(logrus.Fields{
		"rows": len(rows),
		"path": cfg.MLDataPath,
	}).Info("export completed")
}
