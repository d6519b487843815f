package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/cachecheck/internal/config"
	"github.com/roach88/cachecheck/internal/testutil"
)

const (
	statsA = "I-Cache statistics:\n  Hits 10\n  Misses 2\n"
	statsB = "I-Cache statistics:\n  Hits 7\n  Misses 5\n"
)

const testTable = `scenarios:
  - name: alpha
    icache: "8:1:1:x"
    trace: a.txt
  - name: beta
    icache: "8:1:4:x"
    trace: b.txt
  - name: random
    icache: "8:4:8:R"
    trace: a.txt
    skip: random replacement
`

type testEnv struct {
	dir       string
	table     string
	goldenDir string
	sim       *testutil.ScriptedRunner
}

// clearEnv keeps the developer's CACHECHECK_* settings out of the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvSimulator, config.EnvGoldenDir, config.EnvTraceDir,
		config.EnvTable, config.EnvDatabase, config.EnvTimeout, config.EnvSkip,
	} {
		t.Setenv(key, "")
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clearEnv(t)

	dir := t.TempDir()
	env := &testEnv{
		dir:       dir,
		table:     filepath.Join(dir, "table.yaml"),
		goldenDir: filepath.Join(dir, "golden"),
		sim: testutil.NewScriptedRunner(map[string]string{
			"a.txt": statsA,
			"b.txt": statsB,
		}),
	}
	require.NoError(t, os.WriteFile(env.table, []byte(testTable), 0644))
	require.NoError(t, os.MkdirAll(env.goldenDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(env.goldenDir, "test01"), []byte(statsA), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(env.goldenDir, "test02"), []byte(statsB), 0644))
	return env
}

// args returns the run flags pointing at the environment.
func (e *testEnv) args(extra ...string) []string {
	return append([]string{
		"--table", e.table,
		"--golden", e.goldenDir,
		"--traces", e.dir,
	}, extra...)
}
