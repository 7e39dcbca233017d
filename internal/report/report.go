// Package report orchestrates multi-security collateral report runs: it
// builds one CMP request per security, dispatches them, and stacks the
// per-security tables into one aggregate. Per-security failures are logged
// and skipped; partial success is the default policy.
package report

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cmpfetch/cli/internal/cmp"
	"cmpfetch/cli/internal/dispatch"
	"cmpfetch/cli/internal/errors"
	"cmpfetch/cli/internal/progress"
	"cmpfetch/cli/internal/session"
	"cmpfetch/cli/internal/table"
)

// CMBS collateral report identifiers the service accepts.
const (
	ReportLoan     = "cmbsloanbulk"
	ReportProperty = "cmbspropertybulk"
	ReportLease    = "cmbsleasebulk"
	ReportReserve  = "cmbsreservebulk"
)

// factorDateLayout is the YYYYMM period selector format.
const factorDateLayout = "200601"

var reportSeparators = regexp.MustCompile(`[;,]`)

// Options tunes one asset report run.
type Options struct {
	// FactorDate selects the YYYYMM data snapshot; empty means the latest
	// factor date per security.
	FactorDate string
	// IncludePaidDown includes zero-balance (paid down) assets.
	IncludePaidDown bool
	// Fields filters the returned columns; empty means all fields.
	Fields []string
	// CollateralReport names the report to run. Exactly one; empty falls
	// back to the plain assets table.
	CollateralReport string
	// Pipeline sends every security's request up front and correlates
	// responses as they arrive, instead of one request at a time.
	Pipeline bool
	// Dispatch tunes pipelined dispatch; ignored unless Pipeline is set.
	Dispatch dispatch.Options
	// Progress, when set, records the per-security outcome of the run.
	Progress *progress.State
}

// Client runs collateral report requests over a connected session.
type Client struct {
	svc  session.Service
	sess session.Session
	log  zerolog.Logger
}

func NewClient(svc session.Service, sess session.Session, log zerolog.Logger) *Client {
	return &Client{svc: svc, sess: sess, log: log}
}

// AssetReport fetches the chosen collateral report for every security and
// returns the stacked aggregate table. Securities that fail are logged and
// excluded rather than aborting the run.
func (c *Client) AssetReport(ctx context.Context, securities []string, opts Options) (table.Table, error) {
	reportName, err := normalizeReport(opts.CollateralReport)
	if err != nil {
		return table.Table{}, err
	}
	factorDate, err := normalizeFactorDate(opts.FactorDate)
	if err != nil {
		return table.Table{}, err
	}
	fieldList := joinFields(opts.Fields)

	prog := opts.Progress
	if prog == nil {
		prog = progress.NewState()
	}
	prog.ExpectBatch(securities)

	key := "assets"
	if reportName != "" {
		key = reportName
	}

	var tables []table.Table
	collect := func(sec string, fields map[string]any, err error) {
		if err != nil {
			c.log.Error().Str("security", sec).Err(err).Msg("failed to process request")
			prog.Fail(sec, err.Error())
			return
		}
		data, ok := fields[key]
		if !ok {
			c.log.Error().Str("security", sec).Str("report", key).Msg("no data returned")
			prog.Fail(sec, "no data returned for "+key)
			return
		}
		tables = append(tables, table.Build(data, c.log))
		prog.Complete(sec)
	}

	if opts.Pipeline {
		reqs := make([]cmp.Parameters, len(securities))
		for i, sec := range securities {
			reqs[i] = buildParams(sec, factorDate, fieldList, reportName, opts.IncludePaidDown)
		}
		dopts := opts.Dispatch
		dopts.ParseValues = true
		dopts.Logger = c.log
		outcomes, err := dispatch.SendMany(ctx, reqs, c.svc, c.sess, dopts)
		if err != nil {
			return table.Table{}, err
		}
		for _, o := range outcomes {
			collect(securities[o.Index], o.Fields, o.Err)
		}
	} else {
		for _, sec := range securities {
			params := buildParams(sec, factorDate, fieldList, reportName, opts.IncludePaidDown)
			fields, err := dispatch.Send(ctx, params, c.svc, c.sess, true, c.log)
			collect(sec, fields, err)
		}
	}

	return table.Stack(tables, nil, false)
}

// normalizeReport validates that at most one report identifier was given.
// Passing more than one is a usage error, rejected before any network call.
func normalizeReport(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	var reports []string
	for _, r := range reportSeparators.Split(raw, -1) {
		if r = strings.TrimSpace(r); r != "" {
			reports = append(reports, r)
		}
	}
	if len(reports) > 1 {
		return "", errors.New(errors.Usage, "only one collateral report should be listed")
	}
	if len(reports) == 0 {
		return "", nil
	}
	return reports[0], nil
}

// normalizeFactorDate validates the YYYYMM period selector; empty passes
// through and defaults to the latest factor date per security.
func normalizeFactorDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if _, err := time.Parse(factorDateLayout, raw); err != nil {
		return "", errors.New(errors.Usage, "factor_date should be in YYYYMM format")
	}
	return raw, nil
}

// joinFields comma-joins the field filter, dropping blank entries.
func joinFields(fields []string) string {
	var kept []string
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, ",")
}

func buildParams(security, factorDate, fieldList, reportName string, includePaidDown bool) cmp.Parameters {
	params := cmp.Parameters{}.
		With("security", security).
		With("show_headers", "True").
		With("operation", "Assets").
		With("include_zero_balance", cmp.BoolValue(includePaidDown))
	if factorDate != "" {
		params = params.With("factor_date", factorDate)
	}
	if fieldList != "" {
		params = params.With("fields", fieldList)
	}
	if reportName != "" {
		params = params.With("collateral_reports", reportName)
	}
	return params
}
