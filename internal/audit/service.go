package audit

import (
	"encoding/json"

	"matstock-backend/internal/auth"
	"matstock-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type LogOptions struct {
	// Ctx carries the authenticated user; may be nil for system actions.
	Ctx         *fiber.Ctx
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog records an audit entry. Best-effort: a failed audit write is
// logged but never fails the request that triggered it.
func WriteLog(db *gorm.DB, opts LogOptions) {
	// jsonb rejects the empty string, so default to JSON null.
	beforeStr, afterStr := "null", "null"
	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	var userID uint
	var userName string
	if opts.Ctx != nil {
		if id, ok := opts.Ctx.Locals(auth.CtxUserIDKey).(uint); ok {
			userID = id
		}
		if name, ok := opts.Ctx.Locals(auth.CtxUserNameKey).(string); ok {
			userName = name
		}
	}

	entry := models.AuditLog{
		UserID:      userID,
		UserName:    userName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := db.Create(&entry).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"entityType": opts.EntityType,
			"entityId":   opts.EntityID,
		}).Error("audit log write failed")
	}
}
