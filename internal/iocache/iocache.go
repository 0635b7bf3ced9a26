// Package iocache persists run history across monoscope invocations.
package iocache

import (
	"sync"

	"github.com/huangsam/monoscope/internal/contract"
)

// HistoryStoreManager guards the process-wide history store.
type HistoryStoreManager struct {
	sync.RWMutex // Protects the store pointer during initialization
	history      contract.HistoryStore
}

var _ contract.HistoryManager = &HistoryStoreManager{} // Compile-time check

// GetHistoryStore returns the history store, or nil before InitStores.
func (mgr *HistoryStoreManager) GetHistoryStore() contract.HistoryStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.history
}
