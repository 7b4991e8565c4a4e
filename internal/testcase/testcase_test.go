package testcase_test

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etl-verify/internal/dialect"
	"etl-verify/internal/mapping"
	"etl-verify/internal/testcase"
)

func TestGenerate(t *testing.T) {
	records := []mapping.Record{
		{SourceTable: "dbo.Customers", SourceColumn: "CustomerID", TargetTable: "public.customers", TargetColumn: "customer_id"},
		{SourceTable: "dbo.Customers", SourceColumn: "[Email]", TargetTable: "public.customers", TargetColumn: "email", Transformation: "lower()"},
		{SourceTable: "DBO.CUSTOMERS", SourceColumn: "email", TargetTable: "public.customers", TargetColumn: "EMAIL"},
		{SourceTable: "dbo.Customers", SourceColumn: "Unknown", TargetTable: "public.customers", TargetColumn: "legacy"},
		{SourceTable: "-.-", SourceColumn: "x", TargetTable: "public.x", TargetColumn: "x"},
		{SourceTable: "sales.Audit", SourceColumn: "Source", TargetTable: "public.audit", TargetColumn: "Target"},
	}

	cases := testcase.Generate(records, testcase.Options{
		SourceDialect: dialect.GetDialect("sqlserver"),
		TargetDialect: dialect.GetDialect("postgres"),
	})
	require.Len(t, cases, 3)

	rowCount := cases[0]
	assert.NotEqual(t, uuid.Nil, rowCount.ID)
	assert.Equal(t, "Row count: dbo.Customers -> public.customers", rowCount.Name)
	assert.Equal(t, testcase.CategoryCompleteness, rowCount.Category)
	assert.Equal(t, testcase.SeverityCritical, rowCount.Severity)
	assert.Equal(t, "SELECT COUNT(*) AS row_count FROM [dbo].[Customers]", rowCount.SourceSQL)
	assert.Equal(t, `SELECT COUNT(*) AS row_count FROM "public"."customers"`, rowCount.TargetSQL)

	values := cases[1]
	assert.Equal(t, "Column values: dbo.Customers -> public.customers", values.Name)
	assert.Equal(t, testcase.CategoryAccuracy, values.Category)
	assert.Equal(t, testcase.SeverityHigh, values.Severity)
	assert.Equal(t, "SELECT [CustomerID], [Email] FROM [dbo].[Customers] ORDER BY [CustomerID]", values.SourceSQL)
	assert.Equal(t, `SELECT "customer_id", "email" FROM "public"."customers" ORDER BY "customer_id"`, values.TargetSQL)
	assert.Contains(t, values.Description, "email: lower()")

	assert.Equal(t, "Row count: sales.Audit -> public.audit", cases[2].Name)

	_, err := testcase.NewSuite(cases...)
	assert.NoError(t, err)
}

func TestGenerate_MergesPairsCaseInsensitively(t *testing.T) {
	cases := testcase.Generate([]mapping.Record{
		{SourceTable: "orders", SourceColumn: "id", TargetTable: "orders", TargetColumn: "id"},
		{SourceTable: "ORDERS ", SourceColumn: "total", TargetTable: "orders", TargetColumn: "total"},
		{SourceTable: "Orders", SourceColumn: "id", TargetTable: "Orders", TargetColumn: "id"},
	}, testcase.Options{})

	require.Len(t, cases, 2)
	assert.Equal(t, "SELECT id, total FROM orders ORDER BY id", cases[1].SourceSQL)
}

func TestGenerate_SampleLimit(t *testing.T) {
	records := []mapping.Record{{SourceTable: "dbo.Orders", SourceColumn: "OrderID", TargetTable: "orders", TargetColumn: "order_id"}}

	cases := testcase.Generate(records, testcase.Options{
		SourceDialect: dialect.GetDialect("sqlserver"),
		TargetDialect: dialect.GetDialect("postgres"),
		SampleLimit:   500,
	})
	require.Len(t, cases, 2)
	assert.Equal(t, "SELECT COUNT(*) AS row_count FROM [dbo].[Orders]", cases[0].SourceSQL)
	assert.Equal(t, "SELECT [OrderID] FROM [dbo].[Orders] ORDER BY [OrderID] OFFSET 0 ROWS FETCH NEXT 500 ROWS ONLY", cases[1].SourceSQL)
	assert.Equal(t, `SELECT "order_id" FROM "orders" ORDER BY "order_id" LIMIT 500`, cases[1].TargetSQL)

	// without dialects there is no way to spell the limit
	unquoted := testcase.Generate(records, testcase.Options{SampleLimit: 500})
	assert.Equal(t, "SELECT OrderID FROM dbo.Orders ORDER BY OrderID", unquoted[1].SourceSQL)
}

func TestSuite_UniqueNames(t *testing.T) {
	_, err := testcase.NewSuite(&testcase.TestCase{Name: "a"}, &testcase.TestCase{Name: "a"})
	var dup *testcase.ErrDuplicateName
	require.True(t, errors.As(err, &dup))
}

func TestSuite_UpdateByID(t *testing.T) {
	a := &testcase.TestCase{Name: "a"}
	b := &testcase.TestCase{Name: "b"}
	suite, err := testcase.NewSuite(a, b)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, a.ID)

	result := &testcase.RunResult{Status: testcase.StatusPass, Message: "ok", Details: &testcase.RunDetails{SourceCount: 3}}
	require.NoError(t, suite.Update(b.ID, result))
	result.Details.SourceCount = 99

	got, ok := suite.Get(b.ID)
	require.True(t, ok)
	assert.Equal(t, int64(3), got.LastRunResult.Details.SourceCount)
	assert.True(t, got.LastRunResult.Terminal())

	other, _ := suite.Get(a.ID)
	assert.Nil(t, other.LastRunResult)

	var notFound *testcase.ErrCaseNotFound
	assert.True(t, errors.As(suite.Update(uuid.New(), result), &notFound))
}

func TestSuite_ConcurrentUpdates(t *testing.T) {
	var cases []*testcase.TestCase
	for _, n := range []string{"a", "b", "c", "d"} {
		cases = append(cases, &testcase.TestCase{Name: n})
	}
	suite, err := testcase.NewSuite(cases...)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, tc := range suite.Cases() {
		wg.Add(1)
		go func(tc *testcase.TestCase) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = suite.Update(tc.ID, &testcase.RunResult{Status: testcase.StatusRunning, Message: tc.Name})
			}
			_ = suite.Update(tc.ID, &testcase.RunResult{Status: testcase.StatusPass, Message: tc.Name})
		}(tc)
	}
	wg.Wait()

	for _, tc := range suite.Cases() {
		require.NotNil(t, tc.LastRunResult)
		assert.Equal(t, tc.Name, tc.LastRunResult.Message)
		assert.Equal(t, testcase.StatusPass, tc.LastRunResult.Status)
	}
}

func TestSuite_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suite.yaml")
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	suite, err := testcase.NewSuite(&testcase.TestCase{
		Name:      "Row count: a -> b",
		Category:  testcase.CategoryCompleteness,
		Severity:  testcase.SeverityCritical,
		SourceSQL: "SELECT COUNT(*) FROM a",
		TargetSQL: "SELECT COUNT(*) FROM b",
		LastRunResult: &testcase.RunResult{
			Status: testcase.StatusFail, Message: "Timeout", Timestamp: ts, Outcome: "timed_out",
		},
	})
	require.NoError(t, err)
	require.NoError(t, suite.Save(path))

	loaded, err := testcase.LoadSuite(path)
	require.NoError(t, err)
	assert.Equal(t, suite.Cases(), loaded.Cases())
}
