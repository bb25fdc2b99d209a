package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownFormat(t *testing.T) {
	_, err := Init("info", "xml")
	require.Error(t, err)

	_, err = Init("loud", "json")
	require.Error(t, err)
}

func TestReplace(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Replace(zap.New(core))

	L().Info("ontology published", zap.String("container_id", "c1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	require.Equal(t, "ontology published", entry.Message)
	require.Equal(t, "c1", entry.ContextMap()["container_id"])
}
