package entity

import (
	"sort"
	"time"
)

// SessionField valor escalar de la sesión con la marca de tiempo del cliente que lo escribió.
type SessionField struct {
	Value     string `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
}

// SessionItem una unidad escaneada en el carrito de salida.
type SessionItem struct {
	QRCode    string `json:"qrCode"`
	ProductID string `json:"productId"`
	AddedAt   int64  `json:"addedAt"`
}

// ScanningSession sesión de escaneo de salida de un operador, compartida entre sus dispositivos.
type ScanningSession struct {
	UserID    string                  `json:"userId"`
	Fields    map[string]SessionField `json:"fields"`
	Items     map[string]SessionItem  `json:"items"`
	Removed   map[string]int64        `json:"removed"`
	Version   int                     `json:"version"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// SessionPatch cambios enviados por un dispositivo. Timestamp es el reloj del cliente en milisegundos.
type SessionPatch struct {
	Timestamp   int64             `json:"timestamp"`
	Fields      map[string]string `json:"fields,omitempty"`
	AddItems    []SessionItem     `json:"addItems,omitempty"`
	RemoveItems []string          `json:"removeItems,omitempty"`
}

// NewScanningSession sesión vacía para userID.
func NewScanningSession(userID string) *ScanningSession {
	return &ScanningSession{
		UserID:  userID,
		Fields:  map[string]SessionField{},
		Items:   map[string]SessionItem{},
		Removed: map[string]int64{},
	}
}

// MergeSession aplica patch sobre s y devuelve la sesión resultante.
// Campos escalares: gana la escritura con timestamp mayor (en empate gana el patch).
// Carrito: unión de conjuntos; una eliminación explícita sólo pierde frente a un alta posterior.
func MergeSession(s *ScanningSession, patch SessionPatch, now time.Time) *ScanningSession {
	if s == nil {
		s = NewScanningSession("")
	}
	if s.Fields == nil {
		s.Fields = map[string]SessionField{}
	}
	if s.Items == nil {
		s.Items = map[string]SessionItem{}
	}
	if s.Removed == nil {
		s.Removed = map[string]int64{}
	}

	for k, v := range patch.Fields {
		if cur, ok := s.Fields[k]; ok && cur.UpdatedAt > patch.Timestamp {
			continue
		}
		s.Fields[k] = SessionField{Value: v, UpdatedAt: patch.Timestamp}
	}

	for _, code := range patch.RemoveItems {
		if ts, ok := s.Removed[code]; !ok || patch.Timestamp > ts {
			s.Removed[code] = patch.Timestamp
		}
		if it, ok := s.Items[code]; ok && it.AddedAt <= patch.Timestamp {
			delete(s.Items, code)
		}
	}

	for _, it := range patch.AddItems {
		if it.AddedAt == 0 {
			it.AddedAt = patch.Timestamp
		}
		if ts, ok := s.Removed[it.QRCode]; ok && ts >= it.AddedAt {
			continue
		}
		if cur, ok := s.Items[it.QRCode]; ok && cur.AddedAt >= it.AddedAt {
			continue
		}
		s.Items[it.QRCode] = it
	}

	s.Version++
	s.UpdatedAt = now
	return s
}

// ItemList devuelve el carrito ordenado por momento de alta.
func (s *ScanningSession) ItemList() []SessionItem {
	out := make([]SessionItem, 0, len(s.Items))
	for _, it := range s.Items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt == out[j].AddedAt {
			return out[i].QRCode < out[j].QRCode
		}
		return out[i].AddedAt < out[j].AddedAt
	})
	return out
}
