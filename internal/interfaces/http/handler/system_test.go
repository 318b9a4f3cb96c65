package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/internal/interfaces/http/dto"
	"github.com/danilo-avelino/Moby-Dick-Gestor-de-Deliverys-sub000/tests/testutil"
)

func responseData(t *testing.T, tc *testutil.TestContext) map[string]interface{} {
	t.Helper()

	resp := testutil.JSONResponseAs[dto.Response](t, tc)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	return resp.Data.(map[string]interface{})
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler("moby-gestor", "development")
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler("moby-gestor", "staging")

	testutil.RunHTTPTestCase(t, h.GetSystemInfo, testutil.HTTPTestCase{
		Path:           "/system/info",
		ExpectedStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			data := responseData(t, tc)
			assert.Equal(t, "moby-gestor", data["name"])
			assert.Equal(t, "staging", data["environment"])
			assert.Equal(t, "1.0.0", data["version"])
			assert.NotEmpty(t, data["go_version"])
			assert.NotEmpty(t, data["uptime"])
		},
	})
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler("moby-gestor", "development")

	testutil.RunHTTPTestCase(t, h.Ping, testutil.HTTPTestCase{
		Path:           "/system/ping",
		ExpectedStatus: http.StatusOK,
		Validate: func(t *testing.T, tc *testutil.TestContext) {
			data := responseData(t, tc)
			assert.Equal(t, "pong", data["message"])

			// Timestamp must be RFC3339 so platform probes can parse it.
			timestamp := data["timestamp"].(string)
			_, err := time.Parse(time.RFC3339, timestamp)
			assert.NoError(t, err)
		},
	})
}
