package module

import "ghfinder/internal/services/export/domain"

// Ports defines export module ports
type Ports struct {
	Report domain.ReportPort
	Sink   domain.SinkPort
}
