package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leakscan/internal/business/dataset"
	"leakscan/internal/business/schema"
	"leakscan/pkg/errorutil"
)

// annotatedDataset 构造带预测列的注解数据集
func annotatedDataset(sch *schema.Schema, rows []struct {
	leak, anom string
	amount     float64
}) *dataset.Dataset {
	ds := dataset.New([]string{sch.AmountColumn, sch.LeakagePredColumn, sch.AnomalyPredColumn})
	for _, r := range rows {
		ds.AppendRow(dataset.Row{
			sch.AmountColumn:      dataset.Number(r.amount),
			sch.LeakagePredColumn: dataset.String(r.leak),
			sch.AnomalyPredColumn: dataset.String(r.anom),
		})
	}
	return ds
}

func TestPartitionCompleteness(t *testing.T) {
	sch := schema.Supermarket()
	ds := annotatedDataset(sch, []struct {
		leak, anom string
		amount     float64
	}{
		{"No Leakage", "No Anomaly", 100},
		{"Anomaly", "Pricing Error", 80},
		{"No Leakage", "No Anomaly", 50},
		{"Anomaly", "Missing Item", 30},
	})

	c, err := Partition(ds, sch)
	require.NoError(t, err)

	// clean 与 anomaly 互斥且并集覆盖全集
	assert.Equal(t, 4, c.All.NumRows())
	assert.Equal(t, 2, c.Clean.NumRows())
	assert.Equal(t, 2, c.Anomaly.NumRows())
	assert.Equal(t, c.All.NumRows(), c.Clean.NumRows()+c.Anomaly.NumRows())

	for _, row := range c.Clean.Rows {
		assert.Equal(t, sch.NoLeakageValue, row[sch.LeakagePredColumn].AsString())
	}
	for _, row := range c.Anomaly.Rows {
		assert.Equal(t, sch.LeakageValue, row[sch.LeakagePredColumn].AsString())
	}
}

func TestPartitionExactSentinelMatch(t *testing.T) {
	sch := schema.Supermarket()
	// 哨兵值精确匹配：大小写/空白变体不归入任何分组
	ds := annotatedDataset(sch, []struct {
		leak, anom string
		amount     float64
	}{
		{"no leakage", "No Anomaly", 10},
		{"Anomaly ", "Pricing Error", 10},
	})

	c, err := Partition(ds, sch)
	require.NoError(t, err)

	assert.Equal(t, 2, c.All.NumRows())
	assert.Equal(t, 0, c.Clean.NumRows())
	assert.Equal(t, 0, c.Anomaly.NumRows())
}

func TestPartitionMissingColumn(t *testing.T) {
	sch := schema.Supermarket()
	ds := dataset.New([]string{"Billed_Amount"})
	ds.AppendRow(dataset.Row{"Billed_Amount": dataset.Number(1)})

	_, err := Partition(ds, sch)
	require.Error(t, err)
	assert.True(t, errorutil.IsStructural(err))
}

func TestSummarize(t *testing.T) {
	sch := schema.Supermarket()
	ds := annotatedDataset(sch, []struct {
		leak, anom string
		amount     float64
	}{
		{"No Leakage", "No Anomaly", 100},
		{"No Leakage", "No Anomaly", 200},
		{"Anomaly", "Pricing Error", 50},
		{"Anomaly", "Duplicate Transaction", 150},
	})

	c, err := Partition(ds, sch)
	require.NoError(t, err)
	summary := Summarize(c, sch)

	assert.Equal(t, 4, summary.TotalRecords)
	assert.Equal(t, 2, summary.LeakageAnalysis.Counts["No Leakage"])
	assert.Equal(t, 2, summary.LeakageAnalysis.Counts["Anomaly"])
	assert.Equal(t, 1, summary.AnomalyAnalysis.Counts["Pricing Error"])

	// 百分比相加应覆盖全部行
	sum := 0.0
	for _, p := range summary.LeakageAnalysis.Percentages {
		sum += p
	}
	assert.InDelta(t, 100.0, sum, 1e-9)

	assert.Equal(t, 2, summary.RiskAssessment.HighRiskCount)
	assert.InDelta(t, 50.0, summary.RiskAssessment.HighRiskPercentage, 1e-9)

	require.NotNil(t, summary.Financial)
	assert.Equal(t, "Billed_Amount", summary.Financial.Column)
	assert.InDelta(t, 500.0, summary.Financial.TotalAmount, 1e-9)
	assert.InDelta(t, 300.0, summary.Financial.CleanAmount, 1e-9)
	assert.InDelta(t, 200.0, summary.Financial.LeakedAmount, 1e-9)
	assert.InDelta(t, 125.0, summary.Financial.AvgAmount, 1e-9)
}

func TestSummarizeZeroTotal(t *testing.T) {
	sch := schema.Supermarket()
	ds := dataset.New([]string{sch.AmountColumn, sch.LeakagePredColumn, sch.AnomalyPredColumn})

	c, err := Partition(ds, sch)
	require.NoError(t, err)
	summary := Summarize(c, sch)

	// 零行输入不得产生除零
	assert.Equal(t, 0, summary.TotalRecords)
	assert.Equal(t, 0.0, summary.RiskAssessment.HighRiskPercentage)
	assert.Empty(t, summary.LeakageAnalysis.Counts)
	require.NotNil(t, summary.Financial)
	assert.Equal(t, 0.0, summary.Financial.AvgAmount)
}

func TestSummarizeWithoutAmountColumn(t *testing.T) {
	sch := schema.Supermarket()
	ds := dataset.New([]string{sch.LeakagePredColumn, sch.AnomalyPredColumn})
	ds.AppendRow(dataset.Row{
		sch.LeakagePredColumn: dataset.String("No Leakage"),
		sch.AnomalyPredColumn: dataset.String("No Anomaly"),
	})

	c, err := Partition(ds, sch)
	require.NoError(t, err)
	summary := Summarize(c, sch)

	// 金额列缺失时不产生财务聚合
	assert.Nil(t, summary.Financial)
}
