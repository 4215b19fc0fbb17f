package module

import "ghfinder/internal/services/crawl/domain"

// Ports are the crawl module ports
type Ports struct {
	Run         domain.RunPort
	Checkpoints domain.CheckpointPort
}
