package ws

import (
	"time"

	"messenger-service/internal/models"
)

type ConnInfo struct {
	ConnID      string
	Provider    models.ProviderRef
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
