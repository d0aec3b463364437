package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVars() map[string]string {
	return map[string]string{
		"DATABASE_URL":                "postgresql://app:secret@db:5432/appdb",
		"SECRET_KEY":                  "supersecret",
		"ALGORITHM":                   "HS256",
		"ACCESS_TOKEN_EXPIRE_MINUTES": "30",
		"POSTGRES_USER":               "app",
		"POSTGRES_PASSWORD":           "secret",
		"POSTGRES_DB":                 "appdb",
	}
}

func TestResolve(t *testing.T) {
	d, err := Load([]byte(appDBTemplate))
	require.NoError(t, err)

	resolved, warnings, err := Resolve(d, testVars())
	require.NoError(t, err)
	assert.Empty(t, warnings)

	app := resolved.FindService("app")
	require.NotNil(t, app)
	assert.Equal(t, EnvVar{Name: "DATABASE_URL", Value: "postgresql://app:secret@db:5432/appdb"}, app.Environment[0])
	assert.Equal(t, EnvVar{Name: "ACCESS_TOKEN_EXPIRE_MINUTES", Value: "30"}, app.Environment[3])

	db := resolved.FindService("db")
	require.NotNil(t, db)
	assert.Equal(t, EnvVar{Name: "POSTGRES_USER", Value: "app"}, db.Environment[0])
}

func TestResolve_OriginalNotMutated(t *testing.T) {
	d, err := Load([]byte(appDBTemplate))
	require.NoError(t, err)

	_, _, err = Resolve(d, testVars())
	require.NoError(t, err)

	// The unresolved descriptor still carries its placeholders, so it can be
	// re-resolved against a different environment source.
	app := d.FindService("app")
	assert.Equal(t, "${SECRET_KEY}", app.Environment[1].Value)

	other := testVars()
	other["SECRET_KEY"] = "different"
	resolved, _, err := Resolve(d, other)
	require.NoError(t, err)
	assert.Equal(t, "different", resolved.FindService("app").Environment[1].Value)
}

func TestResolve_MissingVariable(t *testing.T) {
	d, err := Load([]byte(appDBTemplate))
	require.NoError(t, err)

	vars := testVars()
	delete(vars, "SECRET_KEY")

	_, _, err = Resolve(d, vars)
	require.Error(t, err)

	var unresolved *UnresolvedVariableError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"SECRET_KEY"}, unresolved.Variables)
	assert.Contains(t, err.Error(), "${SECRET_KEY}")
}

func TestResolve_CollectsAllMissing(t *testing.T) {
	d, err := Load([]byte(appDBTemplate))
	require.NoError(t, err)

	_, _, err = Resolve(d, map[string]string{})
	require.Error(t, err)

	var unresolved *UnresolvedVariableError
	require.ErrorAs(t, err, &unresolved)
	assert.Len(t, unresolved.Variables, 7)
	// First-reference order, deduplicated.
	assert.Equal(t, "DATABASE_URL", unresolved.Variables[0])
}

func TestResolve_DefaultValue(t *testing.T) {
	tmpl := `services:
  app:
    image: myapp:${TAG:-latest}
    environment:
      LOG_LEVEL: ${LOG_LEVEL:-info}
`
	d, err := Load([]byte(tmpl))
	require.NoError(t, err)

	t.Run("default applies with warning", func(t *testing.T) {
		resolved, warnings, err := Resolve(d, map[string]string{})
		require.NoError(t, err)

		assert.Equal(t, "myapp:latest", resolved.Services[0].Image)
		assert.Equal(t, "info", resolved.Services[0].Environment[0].Value)

		require.Len(t, warnings, 2)
		assert.Equal(t, "TAG", warnings[0].Variable)
		assert.Contains(t, warnings[0].String(), `default "latest"`)
	})

	t.Run("explicit value wins over default", func(t *testing.T) {
		resolved, warnings, err := Resolve(d, map[string]string{"TAG": "v2", "LOG_LEVEL": "debug"})
		require.NoError(t, err)
		assert.Empty(t, warnings)
		assert.Equal(t, "myapp:v2", resolved.Services[0].Image)
	})

	t.Run("empty default", func(t *testing.T) {
		tmpl := "services:\n  app:\n    image: myapp${SUFFIX:-}\n"
		d, err := Load([]byte(tmpl))
		require.NoError(t, err)

		resolved, warnings, err := Resolve(d, map[string]string{})
		require.NoError(t, err)
		require.Len(t, warnings, 1)
		assert.Equal(t, "myapp", resolved.Services[0].Image)
	})
}

func TestResolve_SinglePass(t *testing.T) {
	// A substituted value containing placeholder syntax is not re-expanded.
	tmpl := `services:
  app:
    image: myapp
    environment:
      NESTED: ${OUTER}
`
	d, err := Load([]byte(tmpl))
	require.NoError(t, err)

	resolved, _, err := Resolve(d, map[string]string{
		"OUTER": "${INNER}",
		"INNER": "should-not-appear",
	})
	require.NoError(t, err)
	assert.Equal(t, "${INNER}", resolved.Services[0].Environment[0].Value)
}

func TestResolve_ExtraAndVolumeFields(t *testing.T) {
	tmpl := `services:
  app:
    image: myapp
    restart: ${RESTART_POLICY}
    labels:
      - traefik.http.routers.app.rule=Host(` + "`${DOMAIN}`" + `)
volumes:
  data:
    driver: ${VOLUME_DRIVER}
`
	d, err := Load([]byte(tmpl))
	require.NoError(t, err)

	resolved, _, err := Resolve(d, map[string]string{
		"RESTART_POLICY": "always",
		"DOMAIN":         "example.com",
		"VOLUME_DRIVER":  "local",
	})
	require.NoError(t, err)

	restart, _ := resolved.Services[0].Extra.Get("restart")
	assert.Equal(t, "always", restart)

	labels, _ := resolved.Services[0].Extra.Get("labels")
	assert.Equal(t, []any{"traefik.http.routers.app.rule=Host(`example.com`)"}, labels)

	assert.Equal(t, "local", resolved.Volumes[0].Driver)
}

func TestResolve_NoPlaceholders(t *testing.T) {
	tmpl := "services:\n  db:\n    image: postgres:13\n"
	d, err := Load([]byte(tmpl))
	require.NoError(t, err)

	resolved, warnings, err := Resolve(d, map[string]string{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "postgres:13", resolved.Services[0].Image)
}
