// Package data holds the current reference snapshot behind an atomic
// pointer so reloads replace the tables wholesale without blocking readers.
package data

import (
	"sync/atomic"
	"time"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata"
)

// Compile-time check to ensure DataContainer implements ReferenceStore
var _ interfaces.ReferenceStore = (*DataContainer)(nil)

// DataContainer holds the active reference snapshot.
type DataContainer struct {
	snapshot        atomic.Pointer[refdata.Snapshot]
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a container holding an empty snapshot.
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.snapshot.Store(refdata.EmptySnapshot())
	dc.serverStartTime.Store(time.Now())
	return dc
}

// Snapshot returns the current snapshot. Callers must treat it as read-only.
func (dc *DataContainer) Snapshot() *refdata.Snapshot {
	if s := dc.snapshot.Load(); s != nil {
		return s
	}
	logging.Warn("Reference snapshot is missing, serving empty tables")
	return refdata.EmptySnapshot()
}

// Swap atomically replaces the snapshot.
func (dc *DataContainer) Swap(s *refdata.Snapshot) {
	if s == nil {
		return
	}
	dc.snapshot.Store(s)
}

// GetLastUpdated returns when the current snapshot was loaded.
func (dc *DataContainer) GetLastUpdated() time.Time {
	return dc.Snapshot().LoadedAt
}

// IsUpdating returns true if a reload is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// BeginUpdate marks the start of a reload.
// Returns true if the reload can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}

// GetServerStartTime returns when the container was created.
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v, ok := dc.serverStartTime.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}
