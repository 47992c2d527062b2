package predict

import (
	"context"
	"fmt"

	"leakscan/internal/business/dataset"
	"leakscan/internal/business/schema"
	"leakscan/pkg/errorutil"
)

// NoAnomalyClass 未命中任何规则时的异常类别
const NoAnomalyClass = "No Anomaly"

// Rule 单条检测规则
type Rule struct {
	Name         string                     // 规则名
	AnomalyClass string                     // 命中时的异常类别
	Match        func(row dataset.Row) bool // 行级谓词（作用于特征矩阵）
}

// RuleOracle 内置规则模型（未配置训练工件时的回退实现）
// 按固定规则顺序逐行评估，首个命中规则决定异常类别
type RuleOracle struct {
	sch     *schema.Schema
	leakEnc Encoder
	anomEnc Encoder
	rules   []Rule
}

// NewRuleOracle 创建规则模型
// 规则产出的类别必须全部在编码器类别集内，构造时校验一次
func NewRuleOracle(sch *schema.Schema, leakEnc, anomEnc Encoder, rules []Rule) (*RuleOracle, error) {
	if _, ok := leakEnc.Index(sch.NoLeakageValue); !ok {
		return nil, errorutil.Structural(fmt.Sprintf("leakage encoder missing class: %s", sch.NoLeakageValue))
	}
	if _, ok := leakEnc.Index(sch.LeakageValue); !ok {
		return nil, errorutil.Structural(fmt.Sprintf("leakage encoder missing class: %s", sch.LeakageValue))
	}
	if _, ok := anomEnc.Index(NoAnomalyClass); !ok {
		return nil, errorutil.Structural(fmt.Sprintf("anomaly encoder missing class: %s", NoAnomalyClass))
	}
	for _, rule := range rules {
		if _, ok := anomEnc.Index(rule.AnomalyClass); !ok {
			return nil, errorutil.Structural(fmt.Sprintf(
				"anomaly encoder missing class %s required by rule %s", rule.AnomalyClass, rule.Name))
		}
	}

	return &RuleOracle{
		sch:     sch,
		leakEnc: leakEnc,
		anomEnc: anomEnc,
		rules:   rules,
	}, nil
}

// Predict 实现 Oracle 接口
// 输出矩阵的列顺序遵循域的 LabelOrder 契约
func (o *RuleOracle) Predict(ctx context.Context, features *dataset.Dataset) ([][2]int, error) {
	if err := features.CheckDegenerate(); err != nil {
		return nil, err
	}

	cleanLeak, _ := o.leakEnc.Index(o.sch.NoLeakageValue)
	flagLeak, _ := o.leakEnc.Index(o.sch.LeakageValue)
	noAnomaly, _ := o.anomEnc.Index(NoAnomalyClass)

	out := make([][2]int, features.NumRows())
	for i, row := range features.Rows {
		leakIdx := cleanLeak
		anomIdx := noAnomaly

		for _, rule := range o.rules {
			if rule.Match(row) {
				leakIdx = flagLeak
				anomIdx, _ = o.anomEnc.Index(rule.AnomalyClass)
				break
			}
		}

		// 按域契约排列输出列
		for j := 0; j < 2; j++ {
			if o.sch.LabelOrder[j] == schema.LabelLeakage {
				out[i][j] = leakIdx
			} else {
				out[i][j] = anomIdx
			}
		}
	}

	return out, nil
}

// num 取行内数值（缺失按 0）
func num(row dataset.Row, col string) float64 {
	f, _ := row[col].Float()
	return f
}

// SupermarketRules 超市域默认规则集
func SupermarketRules(sch *schema.Schema) []Rule {
	return []Rule{
		// 规则 1：重复标志命中 → 重复交易
		{
			Name:         "duplicate_invoice",
			AnomalyClass: "Duplicate Transaction",
			Match: func(row dataset.Row) bool {
				return num(row, sch.DuplicateColumn) == 1
			},
		},
		// 规则 2：开票金额与派生实收合计偏差超过 1% → 定价错误
		{
			Name:         "billing_mismatch",
			AnomalyClass: "Pricing Error",
			Match: func(row dataset.Row) bool {
				billed := num(row, "Billed_Amount")
				actual := num(row, "actual_billing_amnt")
				if billed == 0 && actual == 0 {
					return false
				}
				diff := billed - actual
				if diff < 0 {
					diff = -diff
				}
				base := billed
				if base < 0 {
					base = -base
				}
				return diff > base*0.01
			},
		},
		// 规则 3：存在未结余额 → 商品缺失
		{
			Name:         "outstanding_balance",
			AnomalyClass: "Missing Item",
			Match: func(row dataset.Row) bool {
				return num(row, "Balance_Amount") > 0
			},
		},
	}
}

// TelecomRules 电信域默认规则集
func TelecomRules(sch *schema.Schema) []Rule {
	return []Rule{
		// 规则 1：实缴低于开票 → 计费错误
		{
			Name:         "underpayment",
			AnomalyClass: "Billing Error",
			Match: func(row dataset.Row) bool {
				return num(row, "Paid_Amount") < num(row, "Billed_Amount")
			},
		},
		// 规则 2：月费为 0 但存在用量 → 用量不匹配
		{
			Name:         "usage_without_charge",
			AnomalyClass: "Usage Mismatch",
			Match: func(row dataset.Row) bool {
				return num(row, "Monthly_Charge") == 0 &&
					(num(row, "Data_Usage_GB") > 0 || num(row, "Call_Minutes") > 0)
			},
		},
		// 规则 3：开票金额偏离月费两倍以上 → 费率错误
		{
			Name:         "rate_deviation",
			AnomalyClass: "Rate Error",
			Match: func(row dataset.Row) bool {
				monthly := num(row, "Monthly_Charge")
				return monthly > 0 && num(row, "Billed_Amount") > monthly*2
			},
		},
	}
}

// DefaultRules 按域取默认规则集
func DefaultRules(sch *schema.Schema) []Rule {
	if sch.Domain == schema.DomainTelecom {
		return TelecomRules(sch)
	}
	return SupermarketRules(sch)
}

// DefaultLeakageClasses 未配置编码器工件时的默认漏收类别
func DefaultLeakageClasses(sch *schema.Schema) []string {
	return []string{sch.NoLeakageValue, sch.LeakageValue}
}

// DefaultAnomalyClasses 未配置编码器工件时的默认异常类别
func DefaultAnomalyClasses(sch *schema.Schema) []string {
	if sch.Domain == schema.DomainTelecom {
		return []string{NoAnomalyClass, "Billing Error", "Usage Mismatch", "Rate Error"}
	}
	return []string{NoAnomalyClass, "Pricing Error", "Duplicate Transaction", "Missing Item"}
}
