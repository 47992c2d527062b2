package coerce

import (
	"fmt"
	"math"
	"strings"

	"leakscan/internal/business/dataset"
	"leakscan/internal/business/normalize"
	"leakscan/internal/business/schema"
	"leakscan/pkg/errorutil"
)

// Unknown 分类列缺失/不可强制值的占位符
const Unknown = "Unknown"

// 类型强制阶段记录的默认值类别
const (
	DefaultNumericZero     = "numeric_zero"     // 数值列不可解析/缺失/无穷，置 0
	DefaultCategoryUnknown = "category_unknown" // 分类列空值拼写，置 Unknown
	DefaultDateYearRescue  = "date_year_rescue" // 日期命名列二次抢救为年份数值
)

// Report 类型强制报告
type Report struct {
	Defaults map[string]int `json:"defaults"`
}

func (r *Report) count(kind string) {
	r.Defaults[kind]++
}

// Run 将归一化结果强制为模型可消费的特征矩阵
// 后置条件：无空值、无 NaN、无 Inf，每列类型全行一致；不增删任何行列
func Run(ds *dataset.Dataset, sch *schema.Schema) (*dataset.Dataset, *Report, error) {
	if err := ds.CheckDegenerate(); err != nil {
		return nil, nil, err
	}

	out := ds.Copy()
	report := &Report{Defaults: make(map[string]int)}
	numericSet := sch.NumericColumnSet()

	// 已由归一化阶段分解的日期列不参与二次抢救
	decomposed := make(map[string]bool, len(sch.DateColumns))
	for _, dc := range sch.DateColumns {
		decomposed[dc] = true
	}

	for _, col := range out.Columns {
		switch {
		case numericSet[col]:
			coerceNumeric(out, col, report)
		case isDateNamed(col) && !decomposed[col] && rescueDateColumn(out, col, report):
			// 日期命名但未被归一化阶段分解的列，二次尝试提取年份
		default:
			coerceCategorical(out, col, report)
		}
	}

	if err := checkInvariant(out); err != nil {
		return nil, nil, err
	}

	return out, report, nil
}

// coerceNumeric 数值强制：解析失败/缺失/无穷 → 0
func coerceNumeric(ds *dataset.Dataset, col string, report *Report) {
	for i := range ds.Rows {
		f, ok := ds.Get(i, col).Float()
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			report.count(DefaultNumericZero)
			f = 0
		}
		ds.Set(i, col, dataset.Number(f))
	}
}

// coerceCategorical 分类强制：裁剪空白，空值拼写统一收敛为 Unknown
func coerceCategorical(ds *dataset.Dataset, col string, report *Report) {
	for i := range ds.Rows {
		v := ds.Get(i, col)
		s := strings.TrimSpace(v.AsString())
		if v.IsMissing() || isNullLike(s) {
			report.count(DefaultCategoryUnknown)
			s = Unknown
		}
		ds.Set(i, col, dataset.String(s))
	}
}

// rescueDateColumn 日期命名列的防御性二次机会：
// 全部非缺失值都能按日在前解析时，整列转为年份数值；否则交还分类处理
func rescueDateColumn(ds *dataset.Dataset, col string, report *Report) bool {
	years := make([]float64, ds.NumRows())
	for i := range ds.Rows {
		v := ds.Get(i, col)
		if v.IsMissing() {
			years[i] = normalize.SentinelYear
			continue
		}
		t, ok := normalize.ParseDayFirst(v.AsString())
		if !ok {
			return false
		}
		years[i] = float64(t.Year())
	}

	report.count(DefaultDateYearRescue)
	for i := range ds.Rows {
		ds.Set(i, col, dataset.Number(years[i]))
	}
	return true
}

// isDateNamed 列名是否暗示日期
func isDateNamed(col string) bool {
	lower := strings.ToLower(col)
	return strings.Contains(lower, "date") || strings.HasSuffix(lower, "_time")
}

// isNullLike 空值的各种拼写
func isNullLike(s string) bool {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "na", "n/a":
		return true
	}
	return false
}

// checkInvariant 后置条件检查：任何单元格都不得缺失、NaN 或 Inf
func checkInvariant(ds *dataset.Dataset) error {
	for i := range ds.Rows {
		for _, col := range ds.Columns {
			v := ds.Get(i, col)
			if v.IsMissing() {
				return errorutil.Structural(fmt.Sprintf("coerced matrix has missing cell at row %d column %s", i, col))
			}
			if v.Kind == dataset.KindNumber && (math.IsNaN(v.Num) || math.IsInf(v.Num, 0)) {
				return errorutil.Structural(fmt.Sprintf("coerced matrix has non-finite cell at row %d column %s", i, col))
			}
		}
	}
	return nil
}
