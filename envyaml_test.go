package envyaml

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// cleanEnv removes variables that change how Load picks files or strictness.
func cleanEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{StrictDisableEnv, YAMLFileEnv, EnvFileEnv} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("TEST_ENV", "test-env")
}

func loadTestConfig(t *testing.T, opts ...Option) *Config {
	t.Helper()

	base := []Option{
		WithYAMLFile(filepath.Join("testdata", "env.test.yaml")),
		WithEnvFile(filepath.Join("testdata", "test.env")),
		WithLogger(zaptest.NewLogger(t)),
	}
	cfg, err := Load(append(base, opts...)...)
	require.NoError(t, err)
	return cfg
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadReadsEnvFile(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t)

	assert.Equal(t, "project-x-42", cfg.Get("env_file.project.name", nil))
	assert.Equal(t, "env-username", cfg.Get("USERNAME", nil))
	assert.Equal(t, "env-password-with-escape", cfg.Get("PASSWORD", nil))
	assert.Equal(t, "env-password-without-escape", cfg.Get("PASSWORD_WE", nil))
	assert.Equal(t, "", cfg.Get("EMPTY", nil))

	for _, key := range []string{"01sre", "!dtdrthkj", "$WRONG_NAME", "comments"} {
		_, err := cfg.Lookup(key)
		assert.ErrorIs(t, err, ErrKeyNotFound, key)
	}
}

func TestLoadNestedValues(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t)

	assert.Equal(t, "one-two-three-value", cfg.Get("one.two.three.value", nil))
	assert.Equal(t, []any{"one", "two", "tree"}, cfg.Get("list_test", nil))
	assert.Equal(t, "one", cfg.Get("list_test.0", nil))
	assert.Equal(t, "tree", cfg.Get("list_test.2", nil))

	keys, ok := cfg.Get("keys", nil).(map[string]any)
	require.True(t, ok)
	assert.Len(t, keys, 2)

	assert.IsType(t, map[string]any{}, cfg.Get("keys_and_lists", nil))
	assert.IsType(t, []any{}, cfg.Get("keys_and_lists.one", nil))
	assert.Equal(t, "one", cfg.Get("keys_and_lists.one.0", nil))
	assert.Equal(t, "one", cfg.Get("keys_and_lists.two.1.super.one", nil))

	assert.Equal(t, "env-username", cfg.Get("var_in_array.to.0", nil))
	assert.Equal(t, "env-username", cfg.Get("var_in_dict.extra.user", nil))
	assert.Equal(t, "env-password-with-escape", cfg.Get("var_in_dict.extra.password", nil))
}

func TestLoadInterpolation(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t)

	assert.Equal(t, "test-env", cfg.Get("config.test_env", nil))
	assert.Equal(t, 100, cfg.Get("config.test", nil))
	assert.Equal(t, "xxxXyyy", cfg.Get("config.complex", nil))
	assert.Equal(t, "DEFAULT", cfg.Get("config.with_default", nil))
	assert.Equal(t, `SELECT * FROM "users" WHERE "user" = $1 AND "login" = $2 AND "pwd" = $3`, cfg.Get("sql", nil))
	assert.Equal(t, `project-x -ex "es5" -an -c:v libx264 -qp 23 -f seg`, cfg.Get("key_extr", nil))
	assert.Equal(t, "ffmpeg -an -c:v libx264 -preset veryfast", cfg.Get("code.ffmpeg", nil))
	assert.Equal(t, `c:\Users\User`, cfg.Get("key_with_slash", nil))

	assert.Equal(t, "$.foo", cfg.Get("test_escape.one", nil))
	assert.Equal(t, "$meet", cfg.Get("test_escape.two", nil))
	assert.Equal(t, "${bracket}", cfg.Get("test_escape.three", nil))
}

func TestLoadOverrides(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t, WithOverrides(map[string]string{
		"PROJECT_NAME":     "project-x-UPDATED",
		"ENVYAML_TEST_BAR": "BAR",
	}))

	assert.Equal(t, "project-x-UPDATED", cfg.Get("PROJECT_NAME", nil))
	assert.Equal(t, "project-x-UPDATED-42", cfg.Get("env_file.project.name", nil))
	assert.Equal(t, "xxxBARyyy", cfg.Get("config.complex", nil))
}

func TestLoadGetDefaults(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t)

	assert.Nil(t, cfg.Get("empty.novalues", "default"))
	assert.Equal(t, "", cfg.Get("empty.noenvvalue", "env-value"))
	assert.Nil(t, cfg.Get("not.exist.key", nil))
	assert.Equal(t, "default", cfg.Get("not.exist.key", "default"))

	_, err := cfg.Lookup("empty.no-value-at-all")
	var notFound *KeyNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "empty.no-value-at-all", notFound.Key)
}

func TestLoadEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ENV_VAR", "test-env-var")
	empty := filepath.Join("testdata", "env.empty.yaml")

	cfg, err := Load(WithYAMLFile(empty))
	require.NoError(t, err)
	assert.Equal(t, "test-env-var", cfg.Get("ENV_VAR", nil))

	cfg, err = Load(WithYAMLFile(empty), WithoutEnvironment())
	require.NoError(t, err)
	assert.False(t, cfg.Contains("ENV_VAR"))
	assert.Zero(t, cfg.Len())
}

func TestLoadStrictMode(t *testing.T) {
	cleanEnv(t)
	ignored := filepath.Join("testdata", "env.ignored.yaml")

	_, err := Load(WithYAMLFile(ignored))
	var undefined *UndefinedVariableError
	require.True(t, errors.As(err, &undefined))
	assert.Equal(t, []string{"ENVYAML_TEST_CONFIG_VERSION", "ENVYAML_TEST_DEFAULT_X"}, undefined.Names)

	cfg, err := Load(WithYAMLFile(ignored), WithStrict(false))
	require.NoError(t, err)
	assert.Equal(t, "$ENVYAML_TEST_CONFIG_VERSION", cfg.Get("env_file.config", nil))
	assert.Equal(t, "password", cfg.Get("env_file.project.pwd", nil))
	assert.Equal(t, "$ENVYAML_TEST_DEFAULT_X", cfg.Get("extra_a", nil))
	assert.False(t, cfg.Strict())
}

func TestLoadStrictDisabledByEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv(StrictDisableEnv, "")

	cfg, err := Load(WithYAMLFile(filepath.Join("testdata", "env.ignored.yaml")), WithStrict(true))
	require.NoError(t, err)
	assert.Equal(t, "$ENVYAML_TEST_CONFIG_VERSION", cfg.Get("env_file.config", nil))
	assert.False(t, cfg.Strict())
}

func TestLoadDuplicateDotenvKeys(t *testing.T) {
	cleanEnv(t)
	yamlFile := filepath.Join("testdata", "env.empty.yaml")
	envFile := filepath.Join("testdata", "double.env")

	_, err := Load(WithYAMLFile(yamlFile), WithEnvFile(envFile), WithoutEnvironment())
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, []string{"A"}, dup.Names)

	cfg, err := Load(WithYAMLFile(yamlFile), WithEnvFile(envFile), WithoutEnvironment(), WithStrict(false))
	require.NoError(t, err)
	assert.Equal(t, "2", cfg.Get("A", nil))
	assert.Equal(t, "1", cfg.Get("B", nil))
}

func TestLoadRootSequence(t *testing.T) {
	cleanEnv(t)
	cfg, err := Load(
		WithYAMLFile(filepath.Join("testdata", "env.list.yaml")),
		WithEnvFile(filepath.Join("testdata", "test.env")),
	)
	require.NoError(t, err)

	assert.Equal(t, "env-username", cfg.Get("0.testing_1.env.username", nil))
	assert.Equal(t, "env-username", cfg.Get("1.testing_2.env.username", nil))
	assert.Equal(t, "env-username", cfg.Get("2.testing_3.env.username", nil))

	exported := cfg.Export()
	assert.Contains(t, exported, "0")
}

func TestLoadScenarios(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()

	t.Run("value from context", func(t *testing.T) {
		path := writeFile(t, dir, "a.yaml", "user: $USER\n")
		cfg, err := Load(WithYAMLFile(path), WithoutEnvironment(), WithOverrides(map[string]string{"USER": "env-username"}))
		require.NoError(t, err)
		assert.Equal(t, "env-username", cfg.Get("user", nil))
	})

	t.Run("inline default", func(t *testing.T) {
		path := writeFile(t, dir, "b.yaml", "value: ${X|DEFAULT}\n")
		cfg, err := Load(WithYAMLFile(path), WithoutEnvironment())
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"value": "DEFAULT"}, cfg.Export())
	})

	t.Run("undefined variable", func(t *testing.T) {
		path := writeFile(t, dir, "c.yaml", "value: $X\n")
		_, err := Load(WithYAMLFile(path), WithoutEnvironment())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "$X")
	})

	t.Run("unicode variable names", func(t *testing.T) {
		t.Setenv("ÜBERMORGEN", "ÜBERMORGEN😃")
		path := writeFile(t, dir, "d.yaml", "next:\n  release: $ÜBERMORGEN\n")
		cfg, err := Load(WithYAMLFile(path))
		require.NoError(t, err)
		assert.Equal(t, "ÜBERMORGEN😃", cfg.Get("next.release", nil))
	})

	t.Run("yaml wins over environment", func(t *testing.T) {
		path := writeFile(t, dir, "e.yaml", "NAME: from-yaml\n")
		cfg, err := Load(WithYAMLFile(path), WithoutEnvironment(), WithOverrides(map[string]string{"NAME": "from-override"}))
		require.NoError(t, err)
		assert.Equal(t, "from-yaml", cfg.Get("NAME", nil))
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeFile(t, dir, "f.yaml", "key: [unclosed\n")
		_, err := Load(WithYAMLFile(path), WithoutEnvironment())
		require.Error(t, err)
	})
}

func TestLoadFileResolution(t *testing.T) {
	cleanEnv(t)

	t.Run("missing explicit yaml", func(t *testing.T) {
		_, err := Load(WithYAMLFile(filepath.Join("testdata", "env.notfound.yaml")))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("missing explicit env file", func(t *testing.T) {
		_, err := Load(WithEnvFile(filepath.Join("testdata", "notfound.env")), WithYAMLFile(filepath.Join("testdata", "env.empty.yaml")))
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("files named by environment", func(t *testing.T) {
		t.Setenv(YAMLFileEnv, filepath.Join("testdata", "env.test.yaml"))
		t.Setenv(EnvFileEnv, filepath.Join("testdata", "test.env"))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "project-x-42", cfg.Get("env_file.project.name", nil))
		assert.Equal(t, filepath.Join("testdata", "env.test.yaml"), cfg.YAMLFile())
		assert.Equal(t, filepath.Join("testdata", "test.env"), cfg.EnvFile())
	})

	t.Run("default files in working directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, DefaultYAMLFile, "greeting: hello $WHO\n")
		writeFile(t, dir, DefaultEnvFile, "WHO=world\n")
		t.Chdir(dir)

		cfg, err := Load(WithoutEnvironment())
		require.NoError(t, err)
		assert.Equal(t, "hello world", cfg.Get("greeting", nil))
	})

	t.Run("no files at all", func(t *testing.T) {
		t.Chdir(t.TempDir())

		cfg, err := Load(WithoutEnvironment())
		require.NoError(t, err)
		assert.Zero(t, cfg.Len())
		assert.Empty(t, cfg.YAMLFile())
	})

	t.Run("empty dotenv file", func(t *testing.T) {
		_, err := Load(WithEnvFile(filepath.Join("testdata", "empty.env")), WithYAMLFile(filepath.Join("testdata", "env.empty.yaml")))
		require.NoError(t, err)
	})
}

func TestLoadExportEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ENVYAML_EXPORTED", "before")

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ENVYAML_EXPORTED=after\n")
	yamlFile := writeFile(t, dir, "env.yaml", "value: $ENVYAML_EXPORTED\n")

	_, err := Load(WithEnvFile(envFile), WithYAMLFile(yamlFile))
	require.NoError(t, err)
	assert.Equal(t, "before", os.Getenv("ENVYAML_EXPORTED"))

	cfg, err := Load(WithEnvFile(envFile), WithYAMLFile(yamlFile), WithExportEnvironment())
	require.NoError(t, err)
	assert.Equal(t, "after", os.Getenv("ENVYAML_EXPORTED"))
	assert.Equal(t, "after", cfg.Get("value", nil))
}

func TestLoadSeparatorAndFlatten(t *testing.T) {
	cleanEnv(t)
	path := writeFile(t, t.TempDir(), "env.yaml", "a:\n  b:\n    - c\n")

	cfg, err := Load(WithYAMLFile(path), WithoutEnvironment(), WithSeparator("__"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a__b", "a__b__0"}, cfg.Keys())

	cfg, err = Load(WithYAMLFile(path), WithoutEnvironment(), WithoutFlatten())
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cfg.Keys())
	assert.False(t, cfg.Contains("a.b"))
}

func TestConfigExportIsACopy(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t)

	exported := cfg.Export()
	assert.GreaterOrEqual(t, len(exported), 4)
	assert.NotContains(t, exported, "one.two")

	one := exported["one"].(map[string]any)
	one["two"] = "mutated"
	exported["new"] = true

	again := cfg.Export()
	assert.IsType(t, map[string]any{}, again["one"].(map[string]any)["two"])
	assert.NotContains(t, again, "new")

	list := cfg.Get("list_test", nil).([]any)
	list[0] = "mutated"
	assert.Equal(t, "one", cfg.Get("list_test.0", nil))
	assert.Equal(t, "one", cfg.Get("list_test", nil).([]any)[0])
}

func TestConfigKeys(t *testing.T) {
	cleanEnv(t)
	cfg := loadTestConfig(t)

	keys := cfg.Keys()
	assert.Greater(t, len(keys), 10)
	assert.Equal(t, len(keys), cfg.Len())
	assert.True(t, cfg.Contains("one.two.three.value"))
	assert.False(t, cfg.Contains("test.not_exists"))
	assert.Equal(t, keys, cfg.Keys())
}

func TestLoadWithoutEnvironmentKeys(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ENVYAML_TEST_SECRET", "hunter2")
	t.Setenv("ENVYAML_TEST_HOST", "db.internal")

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "ENVYAML_TEST_USER=admin\n")
	yamlFile := writeFile(t, dir, "env.yaml", "host: $ENVYAML_TEST_HOST\n")

	cfg, err := Load(WithEnvFile(envFile), WithYAMLFile(yamlFile), WithoutEnvironmentKeys())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Get("host", nil))
	assert.Equal(t, "admin", cfg.Get("ENVYAML_TEST_USER", nil))
	assert.False(t, cfg.Contains("ENVYAML_TEST_SECRET"))
	assert.False(t, cfg.Contains("ENVYAML_TEST_HOST"))
	assert.NotContains(t, cfg.Export(), "ENVYAML_TEST_SECRET")
	assert.Equal(t, []string{"ENVYAML_TEST_USER", "host"}, cfg.Keys())
}

func TestLoadWithoutEnvFile(t *testing.T) {
	cleanEnv(t)

	dir := t.TempDir()
	writeFile(t, dir, ".env", "DUP=1\nDUP=2\n")
	yamlFile := writeFile(t, dir, "env.yaml", "value: ${DUP|none}\n")
	t.Chdir(dir)

	_, err := Load(WithYAMLFile(yamlFile), WithoutEnvironment())
	var duplicate *DuplicateKeyError
	require.True(t, errors.As(err, &duplicate))

	t.Setenv(EnvFileEnv, filepath.Join(dir, ".env"))
	cfg, err := Load(WithYAMLFile(yamlFile), WithoutEnvironment(), WithoutEnvFile())
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Get("value", nil))
	assert.Equal(t, "", cfg.EnvFile())
	assert.False(t, cfg.Contains("DUP"))
}
