package orchestrator

import "sync"

// KeyLock hands out one mutex per key and frees it once nobody holds or waits on it.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*keyEntry
}

type keyEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyLock returns an empty lock table.
func NewKeyLock() *KeyLock {
	return &KeyLock{locks: make(map[string]*keyEntry)}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *KeyLock) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyLock) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func orderKey(id string) string { return "order:" + id }

func maintenanceKey(equipmentID, templateID string) string {
	return "maintenance:" + equipmentID + ":" + templateID
}

func inspectionKey(id string) string { return "inspection:" + id }
