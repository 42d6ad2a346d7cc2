package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tu-usuario/inventory-core/pkg/logger"
)

func TestNew_EstampaServiceEnCadaLinea(t *testing.T) {
	l := logger.New(logger.Config{Env: "production", Level: "info", Service: "inventory-core"})

	var buf bytes.Buffer
	zl := l.Zerolog().Output(&buf)
	zl.Info().Msg("arranque")

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, `"service":"inventory-core"`)
	assert.Contains(t, out, `"message":"arranque"`)
}

func TestComponent_AgregaElCampoSinPerderService(t *testing.T) {
	l := logger.New(logger.Config{Env: "production", Level: "debug", Service: "inventory-core"})

	var buf bytes.Buffer
	zl := l.Component("cache").Zerolog().Output(&buf)
	zl.Debug().Msg("miss")

	out := buf.String()
	assert.Contains(t, out, `"component":"cache"`)
	assert.Contains(t, out, `"service":"inventory-core"`)
}

func TestNew_NivelDesconocido_CaeEnInfo(t *testing.T) {
	l := logger.New(logger.Config{Env: "production", Level: "verboso"})

	var buf bytes.Buffer
	zl := l.Zerolog().Output(&buf)
	zl.Debug().Msg("no debe salir")
	zl.Info().Msg("sí sale")

	out := buf.String()
	assert.NotContains(t, out, "no debe salir")
	assert.Contains(t, out, "sí sale")
}
