package swagger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestDocumentDescribesAuthRoutes(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)

	var doc struct {
		Paths map[string]map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	for _, path := range []string{
		"/api/v1/auth/login",
		"/api/v1/auth/login-with-data",
		"/api/v1/auth/refresh",
		"/api/v1/auth/refresh-with-data",
		"/api/v1/auth/logout",
		"/api/v1/auth/validate-token",
		"/api/v1/auth/me",
		"/api/v1/auth/change-password",
	} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.Contains(t, doc.Paths["/api/v1/auth/validate-token"], "get")
	assert.Contains(t, doc.Paths["/api/v1/auth/validate-token"], "post")
}
