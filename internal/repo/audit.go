package repo

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEvent struct {
	Action       string
	ActorType    string // PATIENT|PROFESSIONAL|SYSTEM
	ActorID      *uuid.UUID
	ClinicID     *uuid.UUID
	RequestID    string
	ResourceType *string
	ResourceID   *uuid.UUID
	PatientID    *uuid.UUID
	Source       *string // USER|SYSTEM
	Metadata     interface{}
}

func CreateAuditEvent(ctx context.Context, db *gorm.DB, ev AuditEvent) error {
	var meta []byte
	if ev.Metadata != nil {
		var marshalErr error
		meta, marshalErr = json.Marshal(ev.Metadata)
		if marshalErr != nil {
			return marshalErr
		}
	}
	return db.WithContext(ctx).Exec(`
		INSERT INTO audit_events (action, actor_type, actor_id, clinic_id, request_id, resource_type, resource_id, patient_id, source, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.Action, ev.ActorType, ev.ActorID, ev.ClinicID, nullIfEmptyText(ev.RequestID),
		ev.ResourceType, ev.ResourceID, ev.PatientID, ev.Source, meta).Error
}

func nullIfEmptyText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
