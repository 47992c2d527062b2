package normalize

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"leakscan/internal/business/dataset"
	"leakscan/internal/business/schema"
)

// 无法解析的日期写入的哨兵日期（不是错误）
const (
	SentinelYear  = 2023
	SentinelMonth = 1
	SentinelDay   = 1
)

// 归一化阶段记录的默认值类别
const (
	DefaultSortKeyFallback  = "sort_key_fallback"  // 标识符缺失/不可解析，使用原始行号
	DefaultTotalMissingTerm = "total_missing_term" // 合计来源列存在但该行值缺失，按 0 计
	DefaultTotalDegraded    = "total_degraded"     // 合计来源列整列缺失，退化为部分和
	DefaultTotalZero        = "total_zero"         // 全部来源列缺失，合计列置 0
	DefaultDateSentinel     = "date_sentinel"      // 日期缺失/不可解析，写入哨兵日期
	DefaultTargetStripped   = "target_stripped"    // 输入自带标签列，已剔除
	DefaultIdentifierAbsent = "identifier_absent"  // 标识符列整列缺失，排序键全部用行号
)

// Report 归一化报告（应用的默认值计数，按类别）
type Report struct {
	RowCount int            `json:"row_count"`
	Defaults map[string]int `json:"defaults"`
}

func newReport(rows int) *Report {
	return &Report{
		RowCount: rows,
		Defaults: make(map[string]int),
	}
}

func (r *Report) count(kind string) {
	r.Defaults[kind]++
}

// Clean 判断是否未应用任何默认值
func (r *Report) Clean() bool {
	return len(r.Defaults) == 0
}

// Run 执行归一化：排序键 → 稳定排序 → 重复标志 → 派生合计 → 日期分解 → 标签剔除
// 行数守恒：任何默认值的应用都不丢行，仅零行/零列输入致命
func Run(ds *dataset.Dataset, sch *schema.Schema) (*dataset.Dataset, *Report, error) {
	if err := ds.CheckDegenerate(); err != nil {
		return nil, nil, err
	}

	out := ds.Copy()
	report := newReport(out.NumRows())

	// 1. 排序键提取与稳定排序
	applySortKey(out, sch, report)

	// 2. 重复标志（排序后相邻性检查）
	applyDuplicateFlag(out, sch)

	// 3. 派生合计
	applyDerivedTotal(out, sch, report)

	// 4. 日期分解（按日在前约定，失败写哨兵）
	applyDateParts(out, sch, report)

	// 5. 标签列剔除（防标签泄漏，不存在则跳过）
	for _, target := range sch.TargetColumns {
		if out.HasColumn(target) {
			out.DropColumns(target)
			report.count(DefaultTargetStripped)
		}
	}

	return out, report, nil
}

// Features 从归一化结果生成特征视图（剔除域的标识符/运营列清单）
// 注解输出保留这些列，仅特征矩阵剔除
func Features(normalized *dataset.Dataset, sch *schema.Schema) *dataset.Dataset {
	deny := sch.FeatureDenySet()
	return normalized.Select(func(column string) bool {
		return !deny[column]
	})
}

// applySortKey 提取整数排序键并稳定升序排序
// 标识符缺失或不可解析时回退为原始行号，排序永不失败
func applySortKey(ds *dataset.Dataset, sch *schema.Schema, report *Report) {
	if sch.IdentifierColumn == "" || sch.SortKeyColumn == "" {
		return
	}

	hasIdentifier := ds.HasColumn(sch.IdentifierColumn)
	if !hasIdentifier {
		report.count(DefaultIdentifierAbsent)
	}

	ds.AddColumn(sch.SortKeyColumn)
	keys := make([]int, ds.NumRows())
	for i := range ds.Rows {
		key := i
		if hasIdentifier {
			parsed, ok := parseIdentifier(ds.Get(i, sch.IdentifierColumn), sch.IdentifierPrefix)
			if ok {
				key = parsed
			} else {
				report.count(DefaultSortKeyFallback)
			}
		}
		keys[i] = key
		ds.Set(i, sch.SortKeyColumn, dataset.Number(float64(key)))
	}

	// 稳定排序：上传顺序不保证有意义，重复检测依赖排序后的相邻性
	idx := make([]int, len(keys))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})

	sorted := make([]dataset.Row, len(ds.Rows))
	for pos, i := range idx {
		sorted[pos] = ds.Rows[i]
	}
	ds.Rows = sorted
}

// parseIdentifier 剥离字面前缀后取首段连续数字
func parseIdentifier(v dataset.Value, prefix string) (int, bool) {
	if v.IsMissing() {
		return 0, false
	}

	s := strings.TrimSpace(v.AsString())
	if prefix != "" {
		s = strings.TrimPrefix(s, prefix)
	}

	start := -1
	end := -1
	for i, r := range s {
		if unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			end = i + 1
		} else if start >= 0 {
			break
		}
	}
	if start < 0 {
		return 0, false
	}

	n := 0
	for _, r := range s[start:end] {
		n = n*10 + int(r-'0')
		if n < 0 {
			// 溢出按不可解析处理
			return 0, false
		}
	}
	return n, true
}

// applyDuplicateFlag 重复标志：排序后标识符与紧邻前/后行相等则为 1
// 注意这是相邻性检查而非全局唯一性检查：两个相同标识符被一个
// 不同行隔开时不会标记。下游模型按该粗粒度语义训练，不得改为全局去重
func applyDuplicateFlag(ds *dataset.Dataset, sch *schema.Schema) {
	if sch.IdentifierColumn == "" || sch.DuplicateColumn == "" {
		return
	}

	ds.AddColumn(sch.DuplicateColumn)
	hasIdentifier := ds.HasColumn(sch.IdentifierColumn)

	n := ds.NumRows()
	for i := 0; i < n; i++ {
		dup := 0.0
		if hasIdentifier {
			cur := ds.Get(i, sch.IdentifierColumn).AsString()
			if cur != "" {
				if i > 0 && ds.Get(i-1, sch.IdentifierColumn).AsString() == cur {
					dup = 1.0
				}
				if i < n-1 && ds.Get(i+1, sch.IdentifierColumn).AsString() == cur {
					dup = 1.0
				}
			}
		}
		ds.Set(i, sch.DuplicateColumn, dataset.Number(dup))
	}
}

// applyDerivedTotal 计算带符号的派生合计
// 全部来源列存在 → 完整合计；部分存在 → 仅用可用列（记录降级）；
// 全部缺失 → 置 0（模型要求固定特征宽度，不能省略该列）
func applyDerivedTotal(ds *dataset.Dataset, sch *schema.Schema, report *Report) {
	dt := sch.DerivedTotal
	if dt == nil {
		return
	}

	available := make([]schema.Term, 0, len(dt.Terms))
	for _, term := range dt.Terms {
		if ds.HasColumn(term.Column) {
			available = append(available, term)
		}
	}

	ds.AddColumn(dt.Column)

	if len(available) == 0 {
		report.count(DefaultTotalZero)
		for i := range ds.Rows {
			ds.Set(i, dt.Column, dataset.Number(0))
		}
		return
	}

	if len(available) < len(dt.Terms) {
		report.count(DefaultTotalDegraded)
	}

	for i := range ds.Rows {
		sum := 0.0
		for _, term := range available {
			f, ok := ds.Get(i, term.Column).Float()
			if !ok {
				report.count(DefaultTotalMissingTerm)
				continue
			}
			sum += term.Sign * f
		}
		ds.Set(i, dt.Column, dataset.Number(sum))
	}
}

// applyDateParts 日期列分解为 year/month/day 整数列
// 解析失败写哨兵日期而非传播空值
func applyDateParts(ds *dataset.Dataset, sch *schema.Schema, report *Report) {
	for _, dateCol := range sch.DateColumns {
		if !ds.HasColumn(dateCol) {
			continue
		}

		parts := schema.DatePartColumns(dateCol)
		ds.AddColumn(parts[0])
		ds.AddColumn(parts[1])
		ds.AddColumn(parts[2])

		for i := range ds.Rows {
			y, m, d := SentinelYear, SentinelMonth, SentinelDay
			if t, ok := ParseDayFirst(ds.Get(i, dateCol).AsString()); ok {
				y, m, d = t.Year(), int(t.Month()), t.Day()
			} else {
				report.count(DefaultDateSentinel)
			}
			ds.Set(i, parts[0], dataset.Number(float64(y)))
			ds.Set(i, parts[1], dataset.Number(float64(m)))
			ds.Set(i, parts[2], dataset.Number(float64(d)))
		}
	}
}

// 日在前约定的候选格式
var dayFirstLayouts = []string{
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.2006",
	"2006-01-02",
	"02-01-2006 15:04:05",
	"02 Jan 2006",
	"2 January 2006",
}

// ParseDayFirst 宽容解析日在前格式的日期字符串
func ParseDayFirst(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
