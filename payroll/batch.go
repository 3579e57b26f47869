package payroll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/warp/payroll-engine/generic"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// BATCH - Many employees, independent outcomes
// =============================================================================
//
// Every employee runs in its own transaction. A failure is recorded against
// that employee and the rest of the batch carries on; successes commit on
// their own whatever happens to the others.

// Failure is the outcome of one failed employee.
type Failure struct {
	EmployeeCode EmployeeCode
	Err          error
}

// Message formats the failure as "CODE: reason".
func (f Failure) Message() string {
	return fmt.Sprintf("%s: %v", f.EmployeeCode, f.Err)
}

type BatchResult struct {
	Month      generic.Month
	Total      int
	Statements []*PayStatement // successes, in input order
	Failures   []Failure       // in input order
}

func (r BatchResult) SuccessCount() int { return len(r.Statements) }

// Err returns nil when every employee succeeded, *BatchError otherwise.
func (r BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return &BatchError{Total: r.Total, Failures: r.Failures}
}

type Batch struct {
	orchestrator *Orchestrator
	workers      int
	logger       *slog.Logger
}

// NewBatch runs up to workers calculations at a time; values below 1 mean 1.
func NewBatch(o *Orchestrator, workers int, logger *slog.Logger) *Batch {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{orchestrator: o, workers: workers, logger: logger}
}

// Run calculates month for every code. Duplicate codes are calculated once.
func (b *Batch) Run(ctx context.Context, month generic.Month, codes []EmployeeCode) BatchResult {
	codes = dedupe(codes)
	statements := make([]*PayStatement, len(codes))
	errs := make([]error, len(codes))

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i, code := range codes {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			statements[i], errs[i] = b.orchestrator.Calculate(ctx, code, month)
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{Month: month, Total: len(codes)}
	for i, code := range codes {
		if errs[i] != nil {
			result.Failures = append(result.Failures, Failure{EmployeeCode: code, Err: errs[i]})
			continue
		}
		result.Statements = append(result.Statements, statements[i])
	}

	b.logger.InfoContext(ctx, "payroll batch finished",
		"month", month.String(), "total", result.Total,
		"succeeded", result.SuccessCount(), "failed", len(result.Failures))
	return result
}

func dedupe(codes []EmployeeCode) []EmployeeCode {
	seen := make(map[EmployeeCode]bool, len(codes))
	out := make([]EmployeeCode, 0, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
