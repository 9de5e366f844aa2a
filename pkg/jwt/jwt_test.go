package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgjwt "github.com/onlyperf/warehouse-api/pkg/jwt"
)

const secret = "test-secret-key-for-unit-tests"

func TestGenerateYParse_ConRol(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "u1", "org-1", pkgjwt.RoleBodeguero, "onlyperf-test", 60)
	require.NoError(t, err)

	userID, orgID, role, err := pkgjwt.Parse(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, "org-1", orgID)
	assert.Equal(t, pkgjwt.RoleBodeguero, role)
}

func TestParseClaims_SesionDeClienteSinOrganizacion(t *testing.T) {
	tok, err := pkgjwt.Generate(secret, "cliente-9", "", pkgjwt.RoleCustomer, "onlyperf-portal", 30)
	require.NoError(t, err)

	c, err := pkgjwt.ParseClaims(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, "cliente-9", c.UserID)
	assert.Equal(t, "cliente-9", c.Subject)
	assert.Empty(t, c.OrganizationID)
	assert.Equal(t, "onlyperf-portal", c.Issuer)
}

func TestParse_Rechazos(t *testing.T) {
	expired, err := pkgjwt.Generate(secret, "u1", "org-1", pkgjwt.RoleAdmin, "onlyperf-test", -1)
	require.NoError(t, err)
	valid, err := pkgjwt.Generate(secret, "u1", "org-1", pkgjwt.RoleAdmin, "onlyperf-test", 60)
	require.NoError(t, err)
	noUser, err := pkgjwt.Generate(secret, "", "org-1", pkgjwt.RoleAdmin, "onlyperf-test", 60)
	require.NoError(t, err)

	cases := []struct {
		name, secret, token string
	}{
		{"expirado", secret, expired},
		{"otro secreto", "otro-secret-completamente-distinto", valid},
		{"secreto vacío", "", valid},
		{"sin user_id", secret, noUser},
		{"basura", secret, "no.es.jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := pkgjwt.Parse(tc.secret, tc.token)
			assert.Error(t, err)
		})
	}
}

func TestGenerate_SecretoVacio(t *testing.T) {
	_, err := pkgjwt.Generate("", "u1", "org-1", pkgjwt.RoleAdmin, "onlyperf-test", 60)
	assert.Error(t, err)
}
