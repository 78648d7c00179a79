package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/liquidation"
	"github.com/warp/payroll-engine/store/postgres"
	"github.com/warp/payroll-engine/store/sqlite"
)

// Both adapters must serve every dependency the command wires.
var (
	_ backend = (*sqlite.Store)(nil)
	_ backend = (*postgres.Store)(nil)
)

const staffBundle = `{
  "employees": [
    {"id": "emp-1", "name": "Ana Gómez", "contract_type": "INDEFINIDO", "start_date": "2024-03-01",
     "base_salary": "3000000", "risk_class": 1, "active": true}
  ],
  "periods": [
    {"id": "2026-08", "name": "Agosto 2026", "start": "2026-08-01", "end": "2026-08-30", "payment_date": "2026-08-31"}
  ]
}`

// newTestCLI points the config at a fresh SQLite file and returns a
// function that runs the command with args.
func newTestCLI(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PAYROLL_ENV_FILE", filepath.Join(dir, "absent.env"))
	t.Setenv("PAYROLL_DB_PATH", filepath.Join(dir, "payroll.db"))
	t.Setenv("PAYROLL_LOG_LEVEL", "warn")

	return func(args ...string) (string, error) {
		var stdout, stderr bytes.Buffer
		err := run(context.Background(), args, &stdout, &stderr)
		return stdout.String(), err
	}
}

func writeBundle(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_SeedLiquidateAndClose(t *testing.T) {
	cli := newTestCLI(t)

	_, err := cli("-seed", "default")
	require.NoError(t, err)

	out, err := cli("-seed", writeBundle(t, staffBundle), "-period", "2026-08")
	require.NoError(t, err)

	var summary liquidation.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "2026-08", summary.PeriodID)
	assert.Equal(t, 1, summary.Employees)
	assert.True(t, decimal.NewFromInt(2760000).Equal(summary.NetTotal), "got %s", summary.NetTotal)
	assert.Empty(t, summary.FallbackKeys)

	out, err = cli("-period", "2026-08", "-close", "PAID")
	require.NoError(t, err)
	var period liquidation.PayrollPeriod
	require.NoError(t, json.Unmarshal([]byte(out), &period))
	assert.Equal(t, liquidation.StatusPaid, period.Status)

	_, err = cli("-period", "2026-08")
	assert.Error(t, err, "a paid period cannot be re-run")
}

func TestRun_SingleEmployee(t *testing.T) {
	cli := newTestCLI(t)
	_, err := cli("-seed", "default")
	require.NoError(t, err)
	_, err = cli("-seed", writeBundle(t, staffBundle))
	require.NoError(t, err)

	out, err := cli("-employee", "emp-1", "-from", "2026-08-01", "-to", "2026-08-15")
	require.NoError(t, err)

	var res liquidation.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "emp-1", res.EmployeeID)
	assert.Equal(t, 15, res.Totals.WorkedDays)
	assert.True(t, decimal.NewFromInt(1500000).Equal(res.Totals.AccruedTotal), "got %s", res.Totals.AccruedTotal)
}

func TestRun_SeedFromConfiguredBundle(t *testing.T) {
	cli := newTestCLI(t)
	_, err := cli("-seed", "config")
	require.Error(t, err, "no reference_data.path configured")

	t.Setenv("PAYROLL_REFERENCE_DATA", writeBundle(t, staffBundle))
	_, err = cli("-seed", "default")
	require.NoError(t, err)
	_, err = cli("-seed", "config")
	require.NoError(t, err)

	out, err := cli("-period", "2026-08")
	require.NoError(t, err)
	var summary liquidation.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Employees)
}

func TestRun_CreatesMissingPeriod(t *testing.T) {
	cli := newTestCLI(t)
	_, err := cli("-seed", "default")
	require.NoError(t, err)

	out, err := cli("-period", "2026-09", "-from", "2026-09-01", "-to", "2026-09-30")
	require.NoError(t, err)

	var summary liquidation.RunSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "2026-09", summary.PeriodID)
	assert.Equal(t, 0, summary.Employees)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"nothing to do", nil, "nothing to do"},
		{"employee without range", []string{"-employee", "emp-1"}, "-employee needs -from and -to"},
		{"close without period", []string{"-close", "PAID", "-seed", "default"}, "-close needs -period"},
		{"unknown flag", []string{"-port", "8080"}, "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
