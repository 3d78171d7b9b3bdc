package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  mode: test\n")

	cfg, err := Load("test", path)
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, 384, cfg.Embedding.Dimension)
	require.Equal(t, "memory", cfg.Vector.Backend)
	require.Equal(t, 100, cfg.Vector.UpsertBatchSize)
	require.Equal(t, "ollama", cfg.LLM.Provider)
	require.Equal(t, "llama2", cfg.LLM.Model)
	require.Equal(t, 120, cfg.LLM.TimeoutSeconds)
	require.Equal(t, 500, cfg.RAG.ChunkSize)
	require.Equal(t, 50, cfg.RAG.ChunkOverlap)
	require.Equal(t, 5, cfg.RAG.TopK)
	require.Equal(t, 4000, cfg.RAG.MaxContextLength)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9100
vector:
  backend: pgvector
rag:
  top_k: 8
`)

	cfg, err := Load("test", path)
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "pgvector", cfg.Vector.Backend)
	require.Equal(t, 8, cfg.RAG.TopK)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_LLM_MODEL", "mistral")
	t.Setenv("APP_VECTOR_BACKEND", "pinecone")

	path := writeConfig(t, "server:\n  mode: test\n")
	cfg, err := Load("test", path)
	require.NoError(t, err)
	require.Equal(t, "mistral", cfg.LLM.Model)
	require.Equal(t, "pinecone", cfg.Vector.Backend)
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host: "db.local", Port: 5433, User: "app", Password: "secret",
		DBName: "aurapilot", SSLMode: "disable",
	}
	require.Equal(t,
		"host=db.local port=5433 user=app password=secret dbname=aurapilot sslmode=disable",
		cfg.GetDSN())
}
