package report

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmpfetch/cli/internal/errors"
	"cmpfetch/cli/internal/progress"
	"cmpfetch/cli/internal/session"
	"cmpfetch/cli/internal/session/sessiontest"
)

// loanTable is the raw list-of-lists shape the service embeds in a report
// field: a header row followed by data rows.
func loanTable(loans ...string) []any {
	rows := []any{[]any{"loan"}}
	for _, l := range loans {
		rows = append(rows, []any{l})
	}
	return rows
}

func TestAssetReportPartialSuccess(t *testing.T) {
	fake := sessiontest.New()
	fake.Respond = func(req sessiontest.SentRequest) []session.Event {
		if strings.Contains(string(req.Payload), "BAD") {
			return []session.Event{sessiontest.ErrorEvent(req.Corr, "unknown security")}
		}
		return []session.Event{sessiontest.SuccessEvent(req.Corr, map[string]any{"assets": loanTable("L1", "L2")})}
	}

	client := NewClient(fake.Service(), fake, zerolog.Nop())
	prog := progress.NewState()
	aggregate, err := client.AssetReport(context.Background(), []string{"GOOD", "BAD"}, Options{Progress: prog})
	require.NoError(t, err, "per-security failures must not abort the run")

	assert.Equal(t, []string{"loan"}, aggregate.Columns)
	require.Len(t, aggregate.Rows, 2)
	assert.Equal(t, "L1", aggregate.Rows[0][0])

	completed, failed, expected := prog.Counts()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, expected)
}

func TestAssetReportPipelined(t *testing.T) {
	fake := sessiontest.New()
	fake.Respond = func(req sessiontest.SentRequest) []session.Event {
		if strings.Contains(string(req.Payload), "BAD") {
			return []session.Event{sessiontest.ErrorEvent(req.Corr, "unknown security")}
		}
		return []session.Event{sessiontest.SuccessEvent(req.Corr, map[string]any{"assets": loanTable(fmt.Sprintf("L%d", req.Corr+1))})}
	}

	client := NewClient(fake.Service(), fake, zerolog.Nop())
	prog := progress.NewState()
	aggregate, err := client.AssetReport(context.Background(), []string{"S1", "BAD", "S3"}, Options{
		Pipeline: true,
		Progress: prog,
	})
	require.NoError(t, err)

	// All three went out before any response was read.
	require.Len(t, fake.Sent(), 3)
	require.Len(t, aggregate.Rows, 2)
	assert.Equal(t, "L1", aggregate.Rows[0][0])
	assert.Equal(t, "L3", aggregate.Rows[1][0])

	completed, failed, _ := prog.Counts()
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, failed)
}

func TestAssetReportUsesReportNameAsDataKey(t *testing.T) {
	fake := sessiontest.New()
	fake.Respond = func(req sessiontest.SentRequest) []session.Event {
		require.Contains(t, string(req.Payload), `"name":"collateral_reports","value":"cmbsloanbulk"`)
		return []session.Event{sessiontest.SuccessEvent(req.Corr, map[string]any{"cmbsloanbulk": loanTable("L1")})}
	}

	client := NewClient(fake.Service(), fake, zerolog.Nop())
	aggregate, err := client.AssetReport(context.Background(), []string{"S1"}, Options{CollateralReport: ReportLoan})
	require.NoError(t, err)
	require.Len(t, aggregate.Rows, 1)
}

func TestAssetReportSkipsSecurityWithoutDataKey(t *testing.T) {
	fake := sessiontest.New()
	fake.Respond = func(req sessiontest.SentRequest) []session.Event {
		return []session.Event{sessiontest.SuccessEvent(req.Corr, map[string]any{"unrelated": "x"})}
	}

	client := NewClient(fake.Service(), fake, zerolog.Nop())
	prog := progress.NewState()
	aggregate, err := client.AssetReport(context.Background(), []string{"S1"}, Options{Progress: prog})
	require.NoError(t, err)
	assert.Empty(t, aggregate.Rows)

	_, failed, _ := prog.Counts()
	assert.Equal(t, 1, failed)
}

func TestAssetReportRequestParameters(t *testing.T) {
	fake := sessiontest.New()
	var payload string
	fake.Respond = func(req sessiontest.SentRequest) []session.Event {
		payload = string(req.Payload)
		return []session.Event{sessiontest.SuccessEvent(req.Corr, map[string]any{"assets": loanTable("L1")})}
	}

	client := NewClient(fake.Service(), fake, zerolog.Nop())
	_, err := client.AssetReport(context.Background(), []string{"S1"}, Options{
		FactorDate:      "202403",
		IncludePaidDown: true,
		Fields:          []string{"loan", "balance"},
	})
	require.NoError(t, err)

	assert.Contains(t, payload, `"name":"security","value":"S1"`)
	assert.Contains(t, payload, `"name":"show_headers","value":"True"`)
	assert.Contains(t, payload, `"name":"operation","value":"Assets"`)
	assert.Contains(t, payload, `"name":"include_zero_balance","value":"True"`)
	assert.Contains(t, payload, `"name":"factor_date","value":"202403"`)
	assert.Contains(t, payload, `"name":"fields","value":"loan,balance"`)
}

func TestAssetReportRejectsMultipleReports(t *testing.T) {
	fake := sessiontest.New()
	client := NewClient(fake.Service(), fake, zerolog.Nop())

	tests := []struct {
		name string
		raw  string
	}{
		{name: "comma separated", raw: "cmbsloanbulk,cmbspropertybulk"},
		{name: "semicolon separated", raw: "cmbsloanbulk; cmbspropertybulk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.AssetReport(context.Background(), []string{"S1"}, Options{CollateralReport: tt.raw})
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.Usage))
		})
	}
	assert.Empty(t, fake.Sent(), "usage errors are rejected before any network call")
}

func TestAssetReportRejectsBadFactorDate(t *testing.T) {
	fake := sessiontest.New()
	client := NewClient(fake.Service(), fake, zerolog.Nop())

	for _, raw := range []string{"2024-03", "20243", "march"} {
		_, err := client.AssetReport(context.Background(), []string{"S1"}, Options{FactorDate: raw})
		require.Error(t, err, "factor date %q", raw)
		assert.True(t, errors.IsKind(err, errors.Usage))
	}
	assert.Empty(t, fake.Sent())
}
