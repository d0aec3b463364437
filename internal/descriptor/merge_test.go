package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergeBase = `version: "3.8"
services:
  app:
    build: .
    ports:
      - "8000:8000"
    environment:
      DEBUG: "true"
      DATABASE_URL: ${DATABASE_URL}
    depends_on:
      - db
  db:
    image: postgres:13
    volumes:
      - postgres_data:/var/lib/postgresql/data
volumes:
  postgres_data:
`

func TestMerge_ProductionOverlay(t *testing.T) {
	base := mustLoad(t, mergeBase)
	overlay, err := LoadOverlay([]byte(`services:
  app:
    ports:
      - "80:8000"
    environment:
      DEBUG: "false"
      WORKERS: "4"
    depends_on:
      - cache
  cache:
    image: redis:7
`))
	require.NoError(t, err)

	merged := Merge(base, overlay)

	app := merged.FindService("app")
	require.NotNil(t, app)

	// Ports replace wholesale; environment merges by name.
	assert.Equal(t, []string{"80:8000"}, app.Ports)
	assert.Equal(t, []EnvVar{
		{Name: "DEBUG", Value: "false"},
		{Name: "DATABASE_URL", Value: "${DATABASE_URL}"},
		{Name: "WORKERS", Value: "4"},
	}, app.Environment)

	// depends_on is a union.
	assert.Equal(t, []string{"db", "cache"}, app.DependsOn)

	// The overlay-only service appends after base services.
	require.Len(t, merged.Services, 3)
	assert.Equal(t, "cache", merged.Services[2].Name)

	// Build survives when the overlay does not touch image/build.
	require.NotNil(t, app.Build)
	assert.Equal(t, ".", app.Build.Context)
}

func TestMerge_InputsNotMutated(t *testing.T) {
	base := mustLoad(t, mergeBase)
	overlay, err := LoadOverlay([]byte("services:\n  app:\n    ports: [\"80:8000\"]\n"))
	require.NoError(t, err)

	_ = Merge(base, overlay)

	assert.Equal(t, []string{"8000:8000"}, base.FindService("app").Ports)
	assert.Equal(t, []string{"80:8000"}, overlay.FindService("app").Ports)
}

func TestMerge_ImageReplacesBuild(t *testing.T) {
	base := mustLoad(t, "services:\n  app:\n    build: .\n")
	overlay, err := LoadOverlay([]byte("services:\n  app:\n    image: registry.example.com/app:v1\n"))
	require.NoError(t, err)

	merged := Merge(base, overlay)
	app := merged.FindService("app")

	// Mutual exclusion holds after the merge.
	assert.Equal(t, "registry.example.com/app:v1", app.Image)
	assert.Nil(t, app.Build)
}

func TestMerge_BuildReplacesImage(t *testing.T) {
	base := mustLoad(t, "services:\n  app:\n    image: myapp:latest\n")
	overlay, err := LoadOverlay([]byte("services:\n  app:\n    build: ./dev\n"))
	require.NoError(t, err)

	merged := Merge(base, overlay)
	app := merged.FindService("app")

	assert.Empty(t, app.Image)
	require.NotNil(t, app.Build)
	assert.Equal(t, "./dev", app.Build.Context)
}

func TestMerge_Volumes(t *testing.T) {
	base := mustLoad(t, mergeBase)
	overlay, err := LoadOverlay([]byte(`volumes:
  postgres_data:
    driver: rexray
  backups:
`))
	require.NoError(t, err)

	merged := Merge(base, overlay)

	require.Len(t, merged.Volumes, 2)
	assert.Equal(t, "rexray", merged.Volumes[0].Driver)
	assert.Equal(t, "backups", merged.Volumes[1].Name)
}

func TestMerge_ExtraFields(t *testing.T) {
	base := mustLoad(t, `services:
  app:
    image: myapp
    restart: "no"
    deploy:
      replicas: 1
      resources:
        limits:
          memory: 256M
`)
	overlay, err := LoadOverlay([]byte(`services:
  app:
    restart: always
    deploy:
      replicas: 4
`))
	require.NoError(t, err)

	merged := Merge(base, overlay)
	app := merged.FindService("app")

	restart, _ := app.Extra.Get("restart")
	assert.Equal(t, "always", restart)

	// Mappings merge recursively: replicas overridden, resources kept.
	deploy, _ := app.Extra.Get("deploy")
	deployMap, ok := deploy.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 4, deployMap["replicas"])
	_, hasResources := deployMap["resources"]
	assert.True(t, hasResources)
}

func TestMerge_VersionOverride(t *testing.T) {
	base := mustLoad(t, mergeBase)

	overlay, err := LoadOverlay([]byte("version: \"3.9\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "3.9", Merge(base, overlay).Version)

	empty, err := LoadOverlay([]byte("services: {}\n"))
	require.NoError(t, err)
	assert.Equal(t, "3.8", Merge(base, empty).Version)
}

func TestMerge_ThenResolveAndValidate(t *testing.T) {
	// The dev/prod split end to end: merge, then resolve, then validate.
	base := mustLoad(t, mergeBase)
	overlay, err := LoadOverlay([]byte(`services:
  app:
    environment:
      DATABASE_URL: ${DATABASE_URL}
`))
	require.NoError(t, err)

	merged := Merge(base, overlay)
	resolved, _, err := Resolve(merged, map[string]string{
		"DATABASE_URL": "postgresql://app:pw@db:5432/prod",
	})
	require.NoError(t, err)
	require.NoError(t, Validate(resolved))

	out, err := Emit(resolved)
	require.NoError(t, err)
	assert.Contains(t, string(out), "postgresql://app:pw@db:5432/prod")
}
