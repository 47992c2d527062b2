package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"leakscan/pkg/errorutil"
)

// Kind 单元格值类型
type Kind int

const (
	// KindMissing 缺失值
	KindMissing Kind = iota
	// KindNumber 数值
	KindNumber
	// KindString 字符串
	KindString
)

// Value 单元格值（带类型标记）
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Missing 创建缺失值
func Missing() Value {
	return Value{Kind: KindMissing}
}

// Number 创建数值
func Number(f float64) Value {
	return Value{Kind: KindNumber, Num: f}
}

// String 创建字符串值
func String(s string) Value {
	return Value{Kind: KindString, Str: s}
}

// IsMissing 判断是否缺失
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing
}

// Float 尝试取数值（字符串值会尝试解析）
func (v Value) Float() (float64, bool) {
	switch v.Kind {
	case KindNumber:
		return v.Num, true
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// AsString 格式化为字符串（缺失值返回空串）
func (v Value) AsString() string {
	switch v.Kind {
	case KindNumber:
		if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e15 {
			return strconv.FormatInt(int64(v.Num), 10)
		}
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindString:
		return v.Str
	default:
		return ""
	}
}

// Row 单行记录（列名 → 值）
type Row map[string]Value

// Dataset 有序列名 + 行集合
// 列顺序即输出顺序，行内通过 Row 按列名取值
type Dataset struct {
	Columns []string
	Rows    []Row
}

// New 创建空数据集
func New(columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{
		Columns: cols,
		Rows:    make([]Row, 0),
	}
}

// NumRows 行数
func (d *Dataset) NumRows() int {
	return len(d.Rows)
}

// NumColumns 列数
func (d *Dataset) NumColumns() int {
	return len(d.Columns)
}

// HasColumn 判断列是否存在
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumn 追加新列（已存在则不变）
func (d *Dataset) AddColumn(name string) {
	if d.HasColumn(name) {
		return
	}
	d.Columns = append(d.Columns, name)
}

// DropColumns 删除列（不存在的列静默跳过）
func (d *Dataset) DropColumns(names ...string) {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	kept := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if !drop[c] {
			kept = append(kept, c)
		}
	}
	d.Columns = kept

	for _, row := range d.Rows {
		for n := range drop {
			delete(row, n)
		}
	}
}

// Get 取单元格值（缺失的键视为缺失值）
func (d *Dataset) Get(rowIdx int, column string) Value {
	v, ok := d.Rows[rowIdx][column]
	if !ok {
		return Missing()
	}
	return v
}

// Set 写单元格值
func (d *Dataset) Set(rowIdx int, column string, v Value) {
	d.Rows[rowIdx][column] = v
}

// AppendRow 追加一行
func (d *Dataset) AppendRow(row Row) {
	d.Rows = append(d.Rows, row)
}

// Copy 深拷贝（行集与值全部复制）
func (d *Dataset) Copy() *Dataset {
	out := New(d.Columns)
	out.Rows = make([]Row, len(d.Rows))
	for i, row := range d.Rows {
		dst := make(Row, len(row))
		for k, v := range row {
			dst[k] = v
		}
		out.Rows[i] = dst
	}
	return out
}

// Select 按列名子集生成新数据集（浅拷贝值）
func (d *Dataset) Select(keep func(column string) bool) *Dataset {
	cols := make([]string, 0, len(d.Columns))
	for _, c := range d.Columns {
		if keep(c) {
			cols = append(cols, c)
		}
	}

	out := New(cols)
	out.Rows = make([]Row, len(d.Rows))
	for i, row := range d.Rows {
		dst := make(Row, len(cols))
		for _, c := range cols {
			if v, ok := row[c]; ok {
				dst[c] = v
			}
		}
		out.Rows[i] = dst
	}
	return out
}

// Filter 按行谓词生成新数据集（行为引用共享）
func (d *Dataset) Filter(pred func(row Row) bool) *Dataset {
	out := New(d.Columns)
	for _, row := range d.Rows {
		if pred(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// CheckDegenerate 退化输入检查（零行/零列为致命错误）
func (d *Dataset) CheckDegenerate() error {
	if d.NumColumns() == 0 {
		return errorutil.Degenerate("input has no columns")
	}
	if d.NumRows() == 0 {
		return errorutil.Degenerate("input has no rows")
	}
	return nil
}

// String 调试用摘要
func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(%d rows, %d columns)", d.NumRows(), d.NumColumns())
}
