package qrcode_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlyperf/warehouse-api/internal/domain"
	"github.com/onlyperf/warehouse-api/internal/domain/qrcode"
)

func TestGenerate_Formato(t *testing.T) {
	g := qrcode.NewGeneratorWithSource(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		code := g.Generate()
		require.Len(t, code, 8)
		assert.True(t, qrcode.Valid(code), "código inválido: %s", code)
		assert.NotContains(t, code[:4], "I")
		assert.NotContains(t, code[:4], "L")
		assert.NotContains(t, code[:4], "O")
	}
}

func TestGenerateBatch_SinDuplicados(t *testing.T) {
	g := qrcode.NewGenerator()
	codes, err := g.GenerateBatch(5000, nil)
	require.NoError(t, err)
	require.Len(t, codes, 5000)

	seen := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		_, dup := seen[c]
		require.False(t, dup, "código repetido %s", c)
		seen[c] = struct{}{}
	}
}

func TestGenerateBatch_EvitaCodigosPersistidos(t *testing.T) {
	// Misma semilla: el primer lote predice exactamente lo que generará el segundo.
	first, err := qrcode.NewGeneratorWithSource(rand.NewPCG(7, 7)).GenerateBatch(3, nil)
	require.NoError(t, err)

	taken := map[string]bool{first[0]: true, first[1]: true}
	codes, err := qrcode.NewGeneratorWithSource(rand.NewPCG(7, 7)).GenerateBatch(3, func(c string) bool { return taken[c] })
	require.NoError(t, err)
	require.Len(t, codes, 3)
	for _, c := range codes {
		assert.False(t, taken[c])
	}
}

func TestGenerateBatch_AgotaIntentos(t *testing.T) {
	g := qrcode.NewGeneratorWithSource(rand.NewPCG(3, 4))
	g.MaxAttempts = 5

	_, err := g.GenerateBatch(2, func(string) bool { return true })
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQRExhausted)
	assert.Contains(t, err.Error(), "posición 0")
}

func TestReplace_SoloPosicionesEnColision(t *testing.T) {
	g := qrcode.NewGeneratorWithSource(rand.NewPCG(9, 9))
	codes, err := g.GenerateBatch(4, nil)
	require.NoError(t, err)

	out, err := g.Replace(codes, []string{codes[2]})
	require.NoError(t, err)
	require.Len(t, out, 4)
	assert.Equal(t, codes[0], out[0])
	assert.Equal(t, codes[1], out[1])
	assert.NotEqual(t, codes[2], out[2])
	assert.Equal(t, codes[3], out[3])
	assert.NotContains(t, []string{codes[0], codes[1], codes[3]}, out[2])
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ABCD1234", qrcode.Normalize("  abcd1234\n"))
}
