package business

import (
	"math"
	"sort"

	"leakscan/internal/business/dataset"
)

// NumericSummary 单个数值列的描述统计
type NumericSummary struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// InputSummary 上传数据的输入摘要
type InputSummary struct {
	TotalRecords   int                       `json:"total_records"`
	Columns        []string                  `json:"columns"`
	ColumnCount    int                       `json:"column_count"`
	MissingValues  map[string]int            `json:"missing_values"`
	NumericSummary map[string]NumericSummary `json:"numeric_summary"`
}

// SummarizeInput 生成输入摘要：行列规模、逐列缺失计数、数值列描述统计
// 数值列判定：至少一个非缺失值且全部非缺失值可解析为数值
func SummarizeInput(ds *dataset.Dataset) *InputSummary {
	summary := &InputSummary{
		TotalRecords:   ds.NumRows(),
		Columns:        append([]string(nil), ds.Columns...),
		ColumnCount:    ds.NumColumns(),
		MissingValues:  make(map[string]int),
		NumericSummary: make(map[string]NumericSummary),
	}

	for _, col := range ds.Columns {
		missing := 0
		values := make([]float64, 0, ds.NumRows())
		numeric := true

		for i := range ds.Rows {
			v := ds.Get(i, col)
			if v.IsMissing() {
				missing++
				continue
			}
			if f, ok := v.Float(); ok {
				values = append(values, f)
			} else {
				numeric = false
			}
		}

		summary.MissingValues[col] = missing
		if numeric && len(values) > 0 {
			summary.NumericSummary[col] = describe(values)
		}
	}

	return summary
}

// describe 均值/中位数/标准差/最小/最大
func describe(values []float64) NumericSummary {
	n := float64(len(values))

	sum := 0.0
	min := values[0]
	max := values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	mean := sum / n

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	std := 0.0
	if len(values) > 1 {
		// 样本标准差（与 pandas 默认一致）
		std = math.Sqrt(variance / (n - 1))
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		median = sorted[mid]
	} else {
		median = (sorted[mid-1] + sorted[mid]) / 2
	}

	return NumericSummary{
		Mean:   mean,
		Median: median,
		Std:    std,
		Min:    min,
		Max:    max,
	}
}
