package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateServerDefaults(t *testing.T) {
	srv := CreateServer(nil)
	require.NotNil(t, srv)

	assert.Equal(t, "127.0.0.1", srv.Address)
	assert.Equal(t, 8000, srv.Port)
	assert.True(t, srv.CORS)
	assert.False(t, srv.AccessLog)

	app := srv.App
	assert.True(t, app.Development)
	assert.True(t, app.AllowsOrigin("https://anything.example"))
	assert.Equal(t, time.Second*30, app.RequestTimeout)
	assert.ElementsMatch(t, []string{"enter", "exit"}, app.Compositor.Kinds())
}

func TestCreateServerProduction(t *testing.T) {
	srv := CreateServer([]string{
		"-environment", "production",
		"-port", "7000",
		"-server-access-log",
	})
	require.NotNil(t, srv)

	assert.Equal(t, "0.0.0.0", srv.Address)
	assert.Equal(t, 7000, srv.Port)
	assert.True(t, srv.AccessLog)

	app := srv.App
	assert.False(t, app.Development)
	assert.True(t, app.AllowsOrigin("https://pepe-is.life"))
	assert.True(t, app.AllowsOrigin("https://dash.pepemanager.com"))
	assert.False(t, app.AllowsOrigin("https://evil.example"))
}

func TestCreateServerEnvVars(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("ENVIRONMENT", "production")

	srv := CreateServer(nil)
	require.NotNil(t, srv)
	assert.Equal(t, 9001, srv.Port)
	assert.Equal(t, "0.0.0.0", srv.Address)
}

func TestCreateServerVersion(t *testing.T) {
	assert.Nil(t, CreateServer([]string{"-version"}))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitCSV("a, b"))
	assert.Equal(t, []string{"a"}, splitCSV("a,,"))
	assert.Nil(t, splitCSV(""))
}
