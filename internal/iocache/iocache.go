// Package iocache is the analytical store for evaluated samples and batch runs.
package iocache

import (
	"sync"

	"github.com/joeshirey/JSRepoAnalysis/internal/contract"
)

// SampleStoreManager holds the process-wide SampleStore.
type SampleStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	samples      contract.SampleStore
}

var _ contract.StoreManager = &SampleStoreManager{} // Compile-time check

// GetSampleStore returns the sample store, or nil before InitStores.
func (mgr *SampleStoreManager) GetSampleStore() contract.SampleStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.samples
}
