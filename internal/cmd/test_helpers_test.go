package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCmd executes the root command with the given args and returns the
// captured output. Global flag state is reset first so tests don't leak
// values into each other.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()

	renderEnvFiles = nil
	renderOverlays = nil
	renderOutput = ""
	renderDryRun = false
	lintEnvFiles = nil
	lintOverlays = nil
	initYes = false
	updateCheckOnly = false

	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

const testTemplate = `version: "3.8"

services:
  app:
    build: ./app
    ports:
      - "8000:8000"
    environment:
      DATABASE_URL: ${DATABASE_URL}
      SECRET_KEY: ${SECRET_KEY}
    depends_on:
      - db

  db:
    image: postgres:13
    environment:
      POSTGRES_PASSWORD: ${POSTGRES_PASSWORD}
    volumes:
      - postgres_data:/var/lib/postgresql/data

volumes:
  postgres_data:
`

const testEnv = `DATABASE_URL=postgresql://app:secret@db:5432/appdb
SECRET_KEY=supersecret
POSTGRES_PASSWORD=secret
`

// newTestProject scaffolds a minimal project and chdirs into it.
func newTestProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "stevedore.yml"), []byte(testTemplate), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte(testEnv), 0600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "overlays"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "overlays", "prod.yml"), []byte(testProdOverlay), 0644))

	t.Chdir(root)
	return root
}

const testProdOverlay = `services:
  app:
    image: registry.example.com/app:1.0.0
    ports:
      - "80:8000"
`
