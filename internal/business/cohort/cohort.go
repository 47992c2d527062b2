package cohort

import (
	"fmt"

	"leakscan/internal/business/dataset"
	"leakscan/internal/business/schema"
	"leakscan/pkg/errorutil"
)

// Cohorts 注解数据集的三个固定分组
// all ⊇ clean，all ⊇ anomaly，clean ∩ anomaly = ∅
type Cohorts struct {
	All     *dataset.Dataset
	Clean   *dataset.Dataset
	Anomaly *dataset.Dataset
}

// Analysis 单个标签列的分布分析
type Analysis struct {
	Counts      map[string]int     `json:"counts"`
	Percentages map[string]float64 `json:"percentages"`
}

// RiskAssessment 风险评估
type RiskAssessment struct {
	HighRiskCount      int     `json:"high_risk_count"`
	HighRiskPercentage float64 `json:"high_risk_percentage"`
}

// FinancialAggregates 金额列的分组聚合（域未配置金额列时为 nil）
type FinancialAggregates struct {
	Column       string  `json:"column"`
	TotalAmount  float64 `json:"total_amount"`
	CleanAmount  float64 `json:"clean_amount"`
	LeakedAmount float64 `json:"leaked_amount"`
	AvgAmount    float64 `json:"avg_amount"`
}

// Summary 分组汇总
type Summary struct {
	TotalRecords    int                  `json:"total_records"`
	LeakageAnalysis Analysis             `json:"leakage_analysis"`
	AnomalyAnalysis Analysis             `json:"anomaly_analysis"`
	RiskAssessment  RiskAssessment       `json:"risk_assessment"`
	Financial       *FinancialAggregates `json:"financial,omitempty"`
}

// Partition 按漏收标志哨兵值切分注解数据集
// 哨兵值按域配置（"No Leakage"/"Anomaly" 或 "No"/"Yes"），精确字符串相等
func Partition(annotated *dataset.Dataset, sch *schema.Schema) (*Cohorts, error) {
	if !annotated.HasColumn(sch.LeakagePredColumn) {
		return nil, errorutil.Structural(fmt.Sprintf(
			"annotated dataset missing leakage column: %s", sch.LeakagePredColumn))
	}

	clean := annotated.Filter(func(row dataset.Row) bool {
		return row[sch.LeakagePredColumn].AsString() == sch.NoLeakageValue
	})
	anomaly := annotated.Filter(func(row dataset.Row) bool {
		return row[sch.LeakagePredColumn].AsString() == sch.LeakageValue
	})

	return &Cohorts{
		All:     annotated,
		Clean:   clean,
		Anomaly: anomaly,
	}, nil
}

// Summarize 计算分组汇总：总行数、两个标签列的分值计数与百分比、风险评估、金额聚合
// 总数为 0 时所有百分比为 0，不产生除零错误
func Summarize(c *Cohorts, sch *schema.Schema) *Summary {
	total := c.All.NumRows()

	summary := &Summary{
		TotalRecords:    total,
		LeakageAnalysis: analyzeColumn(c.All, sch.LeakagePredColumn, total),
		AnomalyAnalysis: analyzeColumn(c.All, sch.AnomalyPredColumn, total),
	}

	summary.RiskAssessment = RiskAssessment{
		HighRiskCount: c.Anomaly.NumRows(),
	}
	if total > 0 {
		summary.RiskAssessment.HighRiskPercentage = float64(c.Anomaly.NumRows()) / float64(total) * 100
	}

	if sch.AmountColumn != "" && c.All.HasColumn(sch.AmountColumn) {
		summary.Financial = aggregateAmounts(c, sch.AmountColumn)
	}

	return summary
}

// analyzeColumn 单列的计数与百分比
func analyzeColumn(ds *dataset.Dataset, column string, total int) Analysis {
	analysis := Analysis{
		Counts:      make(map[string]int),
		Percentages: make(map[string]float64),
	}

	for _, row := range ds.Rows {
		analysis.Counts[row[column].AsString()]++
	}

	for value, count := range analysis.Counts {
		if total > 0 {
			analysis.Percentages[value] = float64(count) / float64(total) * 100
		} else {
			analysis.Percentages[value] = 0
		}
	}

	return analysis
}

// aggregateAmounts 金额列的分组聚合
func aggregateAmounts(c *Cohorts, column string) *FinancialAggregates {
	agg := &FinancialAggregates{Column: column}

	agg.TotalAmount = sumColumn(c.All, column)
	agg.CleanAmount = sumColumn(c.Clean, column)
	agg.LeakedAmount = sumColumn(c.Anomaly, column)
	if n := c.All.NumRows(); n > 0 {
		agg.AvgAmount = agg.TotalAmount / float64(n)
	}

	return agg
}

func sumColumn(ds *dataset.Dataset, column string) float64 {
	sum := 0.0
	for _, row := range ds.Rows {
		if f, ok := row[column].Float(); ok {
			sum += f
		}
	}
	return sum
}
