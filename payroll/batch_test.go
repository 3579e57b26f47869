package payroll_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/payroll"
)

func TestBatch_IsolatesFailures(t *testing.T) {
	// GIVEN: Three employees, E002 has no salary information
	// WHEN: Running a batch for March
	// THEN: E001 and E003 have committed DRAFT statements and the failure
	//       list holds exactly E002

	ctx := context.Background()
	s := newPolicyStore(t)
	seedEmployee(s, "E001", 20_000_000, 0, dayRange(3, 22)...)
	s.SaveEmployee(payroll.Employee{Code: "E002", Active: true})
	s.SaveMonthAttendance(summary("E002", "20"))
	seedEmployee(s, "E003", 18_000_000, 2, dayRange(3, 22)...)

	batch := payroll.NewBatch(payroll.NewOrchestrator(s), 2, nil)
	res := batch.Run(ctx, march, []payroll.EmployeeCode{"E001", "E002", "E003"})

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.SuccessCount())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, payroll.EmployeeCode("E002"), res.Failures[0].EmployeeCode)
	assert.ErrorIs(t, res.Failures[0].Err, payroll.ErrMissingConfiguration)
	assert.True(t, strings.HasPrefix(res.Failures[0].Message(), "E002: "))

	for _, code := range []payroll.EmployeeCode{"E001", "E003"} {
		stmt, err := s.GetStatement(ctx, code, march)
		require.NoError(t, err)
		assert.Equal(t, payroll.StatusDraft, stmt.Status)
	}
	_, err := s.GetStatement(ctx, "E002", march)
	assert.ErrorIs(t, err, payroll.ErrStatementNotFound)

	err = res.Err()
	var batchErr *payroll.BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.ErrorIs(t, err, payroll.ErrBatchPartialFailure)
	assert.Len(t, batchErr.Failures, 1)
}

func TestBatch_KeepsInputOrderAndDedupes(t *testing.T) {
	ctx := context.Background()
	s := newPolicyStore(t)
	codes := []payroll.EmployeeCode{"E005", "E001", "E004", "E002", "E003"}
	for _, c := range codes {
		seedEmployee(s, c, 10_000_000, 0, dayRange(3, 22)...)
	}

	res := payroll.NewBatch(payroll.NewOrchestrator(s), 4, nil).
		Run(ctx, march, append(codes, "E001", ""))

	require.NoError(t, res.Err())
	require.Len(t, res.Statements, len(codes))
	for i, st := range res.Statements {
		assert.Equal(t, codes[i], st.EmployeeCode)
	}
}

func TestBatch_CancelledContextFailsRemainingEmployees(t *testing.T) {
	s := newPolicyStore(t)
	seedEmployee(s, "E001", 10_000_000, 0, dayRange(3, 22)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := payroll.NewBatch(payroll.NewOrchestrator(s), 1, nil).
		Run(ctx, march, []payroll.EmployeeCode{"E001"})

	require.Len(t, res.Failures, 1)
	assert.ErrorIs(t, res.Failures[0].Err, context.Canceled)
}
