package policy

import (
	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/catalog"
	"github.com/backkem/avpolicy/pkg/feeder"
	"github.com/backkem/avpolicy/pkg/metrics"
	"github.com/backkem/avpolicy/pkg/mtu"
	"github.com/pion/logging"
)

// Config holds all configuration for a Policy.
type Config struct {
	// Role
	LocalType a2dp.SEPType // Local endpoint type (default: source)

	// Codecs - Optional
	Codecs  []catalog.Definition // Available codecs (default: catalog.DefaultDefinitions)
	Backend catalog.Backend      // Device codec engine

	// Content protection - Optional
	ContentProtection        bool           // Advertise SCMS-T
	RequireContentProtection bool           // Refuse streams without SCMS-T
	DefaultCopyMode          *a2dp.CopyMode // Fallback copy-control mode (default: copy-never)

	// Streams
	MaxStreams int // Concurrent streams (default: stream.DefaultMaxStreams)

	// Data path - Optional
	Source       feeder.Source // Frame supplier (default: an empty feeder.Queue)
	MaxLevel     int           // Quality reduction cap (default: feeder.DefaultMaxLevel)
	RecoverAfter int           // Clean frames per level decay (default: feeder.DefaultRecoverAfter)

	// Callbacks - Optional
	OnMTUChange mtu.ChangeFunc // Effective MTU of a direction changed

	// Observability - Optional
	Metrics       *metrics.Metrics
	LoggerFactory logging.LoggerFactory
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !c.LocalType.IsValid() {
		return ErrInvalidLocalType
	}

	if c.RequireContentProtection && !c.ContentProtection {
		return ErrProtectionRequired
	}

	if c.DefaultCopyMode != nil && !c.DefaultCopyMode.IsValid() {
		return ErrInvalidCopyMode
	}

	if c.MaxStreams < 0 {
		return ErrInvalidMaxStreams
	}

	return nil
}

// applyDefaults fills in default values for unset fields.
func (c *Config) applyDefaults() {
	if c.Source == nil {
		c.Source = feeder.NewQueue(feeder.DefaultQueueSize)
	}
}
