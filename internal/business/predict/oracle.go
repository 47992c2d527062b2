package predict

import (
	"context"
	"fmt"

	"leakscan/internal/business/dataset"
	"leakscan/internal/business/schema"
	"leakscan/pkg/errorutil"
)

// Oracle 外部分类模型（不透明预言机）
// 输入特征矩阵，输出 行数×2 的整数标签矩阵
// 前置条件：特征列集合/顺序与训练时一致，违反时返回结构性错误
type Oracle interface {
	Predict(ctx context.Context, features *dataset.Dataset) ([][2]int, error)
}

// Encoder 标签编码器（下标 ↔ 类别名的双射，每个标签维度一个）
type Encoder interface {
	// Decode 下标 → 类别名，越界为结构性错误
	Decode(index int) (string, error)

	// Index 类别名 → 下标
	Index(class string) (int, bool)

	// Classes 已知类别清单
	Classes() []string
}

// Adapter 预测适配器：调用模型、按域契约解码、拼接预测列
type Adapter struct {
	oracle  Oracle
	leakEnc Encoder
	anomEnc Encoder
	sch     *schema.Schema
}

// NewAdapter 创建预测适配器
func NewAdapter(oracle Oracle, leakEnc, anomEnc Encoder, sch *schema.Schema) *Adapter {
	return &Adapter{
		oracle:  oracle,
		leakEnc: leakEnc,
		anomEnc: anomEnc,
		sch:     sch,
	}
}

// Predict 执行批量预测并把解码后的标签列拼接到归一化行集
// normalized 为预类型强制的人类可读行集（注解输出的底座），
// features 为送入模型的特征矩阵，两者行数必须一致
func (a *Adapter) Predict(ctx context.Context, normalized, features *dataset.Dataset) (*dataset.Dataset, error) {
	// 模型或编码器未加载：请求级致命，不尝试预测
	if a.oracle == nil || a.leakEnc == nil || a.anomEnc == nil {
		return nil, errorutil.Structural("prediction service unavailable: model or encoders not loaded")
	}

	labels, err := a.oracle.Predict(ctx, features)
	if err != nil {
		// 推理报错说明上游归一化/强制存在结构缺陷，不重试
		return nil, errorutil.StructuralWithDetails("model inference failed", err.Error())
	}

	if len(labels) != normalized.NumRows() {
		return nil, errorutil.Structural(fmt.Sprintf(
			"label matrix has %d rows, expected %d", len(labels), normalized.NumRows()))
	}

	annotated := normalized.Copy()
	annotated.AddColumn(a.sch.LeakagePredColumn)
	annotated.AddColumn(a.sch.AnomalyPredColumn)

	for i, pair := range labels {
		// 固定契约：LabelOrder 决定输出矩阵哪一列由哪个编码器解码。
		// supermarket 为 [leakage, anomaly]，telecom 为 [anomaly, leakage]。
		// 颠倒映射会静默损坏全部标签，此处严格按 Schema 配置分派
		for j := 0; j < 2; j++ {
			switch a.sch.LabelOrder[j] {
			case schema.LabelLeakage:
				name, err := a.leakEnc.Decode(pair[j])
				if err != nil {
					return nil, err
				}
				annotated.Set(i, a.sch.LeakagePredColumn, dataset.String(name))
			case schema.LabelAnomaly:
				name, err := a.anomEnc.Decode(pair[j])
				if err != nil {
					return nil, err
				}
				annotated.Set(i, a.sch.AnomalyPredColumn, dataset.String(name))
			}
		}
	}

	return annotated, nil
}
