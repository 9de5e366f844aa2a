// Package session almacenes de la sesión de escaneo de salida compartida entre dispositivos.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/onlyperf/warehouse-api/internal/domain/entity"
)

// MemoryStore sesiones en memoria del proceso (una sola instancia de la API).
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	now      func() time.Time
}

// NewMemoryStore crea el almacén.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]byte{}, now: time.Now}
}

// Get devuelve la sesión del usuario o una vacía.
func (s *MemoryStore) Get(_ context.Context, userID string) (*entity.ScanningSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID)
}

// Apply fusiona patch con la sesión guardada bajo el mutex.
func (s *MemoryStore) Apply(_ context.Context, userID string, patch entity.SessionPatch) (*entity.ScanningSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	merged := entity.MergeSession(cur, patch, s.now())
	data, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	s.sessions[userID] = data
	return merged, nil
}

// Clear elimina la sesión.
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// load decodifica una copia para que el llamador no comparta mapas con el almacén.
func (s *MemoryStore) load(userID string) (*entity.ScanningSession, error) {
	data, ok := s.sessions[userID]
	if !ok {
		return entity.NewScanningSession(userID), nil
	}
	var sess entity.ScanningSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}
