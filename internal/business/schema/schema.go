package schema

import "fmt"

// 业务域名称
const (
	DomainSupermarket = "supermarket"
	DomainTelecom     = "telecom"
)

// LabelDim 标签维度
type LabelDim int

const (
	// LabelLeakage 漏收标志维度
	LabelLeakage LabelDim = iota
	// LabelAnomaly 异常类型维度
	LabelAnomaly
)

// Term 派生合计的单个来源列（带符号）
type Term struct {
	Column string  // 来源列名
	Sign   float64 // +1 / -1
}

// DerivedTotal 派生合计列定义
type DerivedTotal struct {
	Column string // 输出列名
	Terms  []Term // 来源列与符号
}

// Schema 业务域描述符
// 归一化、类型强制、预测解码、分组的全部域配置在初始化时固定，
// 不在运行时推断（避免散落的列存在性分支）
type Schema struct {
	Domain     string // supermarket / telecom
	ActionType string // 队列路由键

	// 标识符解析与排序
	IdentifierColumn string // 标识符列（为空表示该域无标识符逻辑）
	IdentifierPrefix string // 字面前缀（如 "INV"）
	SortKeyColumn    string // 派生整数排序键列名
	DuplicateColumn  string // 派生重复标志列名

	// 派生合计（可为 nil）
	DerivedTotal *DerivedTotal

	// 日期分解
	DateColumns       []string // 按日在前约定解析的日期列
	DropDateOriginals bool     // 分解后是否从特征中剔除原始日期列

	// 列裁剪
	DenyColumns   []string // 标识符/运营列（特征中剔除，固定清单）
	TargetColumns []string // 目标/标签列（防标签泄漏，归一化时剔除）

	// 类型强制
	NumericColumns []string // 域声明的数值特征列

	// 汇总
	AmountColumn string // 金额列（财务聚合用，可为空）

	// 预测输出
	LeakagePredColumn string // 漏收标志输出列名
	AnomalyPredColumn string // 异常类型输出列名
	NoLeakageValue    string // 无漏收哨兵值
	LeakageValue      string // 漏收哨兵值

	// LabelOrder 将模型输出矩阵的列下标映射到标签维度。
	// 这是与模型工件之间的固定契约：supermarket 为 [leakage, anomaly]，
	// telecom 为 [anomaly, leakage]。两个维度使用不同的编码器，
	// 颠倒顺序会静默损坏全部标签而不报错，严禁在运行时推断或"修正"。
	LabelOrder [2]LabelDim
}

// Supermarket 超市域描述符
func Supermarket() *Schema {
	return &Schema{
		Domain:     DomainSupermarket,
		ActionType: "supermarket_analyze",

		IdentifierColumn: "Invoice_Number",
		IdentifierPrefix: "INV",
		SortKeyColumn:    "Invoice_Num_Int",
		DuplicateColumn:  "Is_Duplicate",

		DerivedTotal: &DerivedTotal{
			Column: "actual_billing_amnt",
			Terms: []Term{
				{Column: "Actual_Amount", Sign: +1},
				{Column: "Tax_Amount", Sign: +1},
				{Column: "Service_Charge", Sign: +1},
				{Column: "Discount_Amount", Sign: -1},
			},
		},

		DateColumns:       []string{"Billing_Date"},
		DropDateOriginals: false,

		DenyColumns: []string{
			"Invoice_Number", "Billing_Time", "Service_Category",
			"Transaction_Type", "Store_Branch", "Cashier_ID", "Supplier_ID",
		},
		TargetColumns: []string{"Leakage_Flag", "Anomaly_Type"},

		NumericColumns: []string{
			"Billed_Amount", "Actual_Amount", "Tax_Amount",
			"Service_Charge", "Discount_Amount", "Balance_Amount", "Quantity",
		},

		AmountColumn: "Billed_Amount",

		LeakagePredColumn: "Leakage_Flag_Pred",
		AnomalyPredColumn: "Anomaly_Type_Pred",
		NoLeakageValue:    "No Leakage",
		LeakageValue:      "Anomaly",

		// 固定契约：输出列 0 = leakage，列 1 = anomaly
		LabelOrder: [2]LabelDim{LabelLeakage, LabelAnomaly},
	}
}

// Telecom 电信域描述符
func Telecom() *Schema {
	return &Schema{
		Domain:     DomainTelecom,
		ActionType: "telecom_analyze",

		IdentifierColumn: "Customer_ID",
		IdentifierPrefix: "CUST",
		SortKeyColumn:    "Customer_Num_Int",
		DuplicateColumn:  "Is_Duplicate",

		DerivedTotal: nil,

		DateColumns:       []string{"Billing_date", "Plan_start_date", "Plan_end_date"},
		DropDateOriginals: true,

		DenyColumns:   []string{"Customer_ID", "Customer_Name", "Region"},
		TargetColumns: []string{"Leakage", "Anomaly_type"},

		NumericColumns: []string{
			"Monthly_Charge", "Billed_Amount", "Paid_Amount",
			"Data_Usage_GB", "Call_Minutes", "SMS_Count",
		},

		AmountColumn: "Billed_Amount",

		LeakagePredColumn: "Leakage",
		AnomalyPredColumn: "Anomaly_type",
		NoLeakageValue:    "No",
		LeakageValue:      "Yes",

		// 固定契约：输出列 0 = anomaly，列 1 = leakage（与超市域相反）
		LabelOrder: [2]LabelDim{LabelAnomaly, LabelLeakage},
	}
}

// ByDomain 按域名取描述符
func ByDomain(domain string) (*Schema, error) {
	switch domain {
	case DomainSupermarket:
		return Supermarket(), nil
	case DomainTelecom:
		return Telecom(), nil
	default:
		return nil, fmt.Errorf("unknown domain: %s", domain)
	}
}

// Validate 验证描述符完整性（初始化时调用一次）
func (s *Schema) Validate() error {
	if s.Domain == "" {
		return fmt.Errorf("schema domain is required")
	}
	if s.LeakagePredColumn == "" || s.AnomalyPredColumn == "" {
		return fmt.Errorf("schema %s: prediction column names are required", s.Domain)
	}
	if s.NoLeakageValue == "" || s.LeakageValue == "" {
		return fmt.Errorf("schema %s: leakage sentinel values are required", s.Domain)
	}
	if s.NoLeakageValue == s.LeakageValue {
		return fmt.Errorf("schema %s: leakage sentinels must differ", s.Domain)
	}
	if s.LabelOrder[0] == s.LabelOrder[1] {
		return fmt.Errorf("schema %s: label order must cover both dimensions", s.Domain)
	}
	if s.IdentifierColumn != "" && (s.SortKeyColumn == "" || s.DuplicateColumn == "") {
		return fmt.Errorf("schema %s: sort key and duplicate columns are required with identifier", s.Domain)
	}
	if s.DerivedTotal != nil {
		if s.DerivedTotal.Column == "" || len(s.DerivedTotal.Terms) == 0 {
			return fmt.Errorf("schema %s: derived total needs a column and at least one term", s.Domain)
		}
		for _, t := range s.DerivedTotal.Terms {
			if t.Sign != 1 && t.Sign != -1 {
				return fmt.Errorf("schema %s: derived total sign must be +1 or -1 for %s", s.Domain, t.Column)
			}
		}
	}
	return nil
}

// DatePartColumns 日期列分解出的整数列名
func DatePartColumns(dateColumn string) [3]string {
	return [3]string{
		dateColumn + "_year",
		dateColumn + "_month",
		dateColumn + "_day",
	}
}

// NumericColumnSet 类型强制阶段按数值处理的完整列集合
// 域声明的数值列 + 派生排序键/重复标志/合计列 + 全部日期分解列
func (s *Schema) NumericColumnSet() map[string]bool {
	set := make(map[string]bool)
	for _, c := range s.NumericColumns {
		set[c] = true
	}
	if s.SortKeyColumn != "" {
		set[s.SortKeyColumn] = true
	}
	if s.DuplicateColumn != "" {
		set[s.DuplicateColumn] = true
	}
	if s.DerivedTotal != nil {
		set[s.DerivedTotal.Column] = true
	}
	for _, dc := range s.DateColumns {
		parts := DatePartColumns(dc)
		set[parts[0]] = true
		set[parts[1]] = true
		set[parts[2]] = true
	}
	return set
}

// FeatureDenySet 特征矩阵中需要剔除的列集合（标识符清单 + 可选的原始日期列）
func (s *Schema) FeatureDenySet() map[string]bool {
	set := make(map[string]bool, len(s.DenyColumns))
	for _, c := range s.DenyColumns {
		set[c] = true
	}
	if s.DropDateOriginals {
		for _, dc := range s.DateColumns {
			set[dc] = true
		}
	}
	return set
}
