// Package qrcode: generación de códigos cortos para etiquetas QR de unidades físicas.
// Formato: 4 letras (sin I, L, O para evitar confusión con 1 y 0) + 4 dígitos, ej. "KMPX4821".

package qrcode

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/onlyperf/warehouse-api/internal/domain"
)

const (
	Letters = "ABCDEFGHJKMNPQRSTUVWXYZ"
	Digits  = "0123456789"

	// DefaultMaxAttempts reintentos por posición del lote antes de abortar.
	DefaultMaxAttempts = 100
)

var codePattern = regexp.MustCompile(`^[ABCDEFGHJKMNPQRSTUVWXYZ]{4}[0-9]{4}$`)

// Valid indica si code tiene el formato de un código generado.
func Valid(code string) bool {
	return codePattern.MatchString(code)
}

// Normalize limpia el texto leído por el escáner.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Generator genera códigos aleatorios. No es seguro para uso concurrente si se inyecta una fuente propia.
type Generator struct {
	rng         *rand.Rand
	MaxAttempts int
}

// NewGenerator crea un generador con fuente aleatoria del runtime.
func NewGenerator() *Generator {
	return &Generator{
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		MaxAttempts: DefaultMaxAttempts,
	}
}

// NewGeneratorWithSource crea un generador con una fuente fija (tests).
func NewGeneratorWithSource(src rand.Source) *Generator {
	return &Generator{rng: rand.New(src), MaxAttempts: DefaultMaxAttempts}
}

// Generate devuelve un código nuevo.
func (g *Generator) Generate() string {
	var b [8]byte
	for i := 0; i < 4; i++ {
		b[i] = Letters[g.rng.IntN(len(Letters))]
	}
	for i := 4; i < 8; i++ {
		b[i] = Digits[g.rng.IntN(len(Digits))]
	}
	return string(b[:])
}

// GenerateBatch genera n códigos distintos entre sí y distintos de los que taken reporta como usados.
// taken puede ser nil. Si alguna posición agota MaxAttempts devuelve ErrQRExhausted con el índice.
func (g *Generator) GenerateBatch(n int, taken func(string) bool) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ok := false
		for attempt := 0; attempt < maxAttempts; attempt++ {
			code := g.Generate()
			if _, dup := seen[code]; dup {
				continue
			}
			if taken != nil && taken(code) {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
			ok = true
			break
		}
		if !ok {
			return nil, fmt.Errorf("%w: posición %d tras %d intentos", domain.ErrQRExhausted, i, maxAttempts)
		}
	}
	return codes, nil
}

// Replace regenera las posiciones de codes que aparecen en collisions, manteniendo el resto.
// Usado cuando la base de datos reporta códigos ya persistidos.
func (g *Generator) Replace(codes []string, collisions []string) ([]string, error) {
	if len(collisions) == 0 {
		return codes, nil
	}
	bad := make(map[string]struct{}, len(collisions))
	for _, c := range collisions {
		bad[c] = struct{}{}
	}
	inBatch := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		inBatch[c] = struct{}{}
	}
	out := make([]string, len(codes))
	copy(out, codes)
	for i, c := range out {
		if _, ok := bad[c]; !ok {
			continue
		}
		fresh, err := g.GenerateBatch(1, func(s string) bool {
			_, used := inBatch[s]
			_, collided := bad[s]
			return used || collided
		})
		if err != nil {
			return nil, fmt.Errorf("posición %d: %w", i, err)
		}
		out[i] = fresh[0]
		inBatch[fresh[0]] = struct{}{}
	}
	return out, nil
}
