package recommend

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"leakscan/internal/business/cohort"
	"leakscan/pkg/config"
	"leakscan/pkg/retryutil"
)

// Recommender 整改建议生成器接口
type Recommender interface {
	// Recommend 根据分析汇总生成整改建议文本
	Recommend(ctx context.Context, domain string, summary *cohort.Summary) (string, error)
}

// Disabled 空实现，未配置 API Key 时使用
type Disabled struct{}

// Recommend 始终返回空建议
func (Disabled) Recommend(ctx context.Context, domain string, summary *cohort.Summary) (string, error) {
	return "", nil
}

// GenAIRecommender 基于 Gemini 生成整改建议
type GenAIRecommender struct {
	client *genai.Client
	model  string
	policy retryutil.Policy
}

// New 根据配置构建建议生成器，未启用时返回 Disabled
func New(cfg config.RecommendConfig) (Recommender, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return Disabled{}, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client failed: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	policy := retryutil.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Multiplier:  cfg.Multiplier,
	}

	return &GenAIRecommender{
		client: client,
		model:  model,
		policy: policy,
	}, nil
}

// Recommend 生成整改建议，失败时按策略重试
func (r *GenAIRecommender) Recommend(ctx context.Context, domain string, summary *cohort.Summary) (string, error) {
	// 1. 构造提示词
	prompt := buildPrompt(domain, summary)

	// 2. 带重试调用模型
	var text string
	err := retryutil.Do(ctx, r.policy, func(ctx context.Context) error {
		resp, callErr := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), nil)
		if callErr != nil {
			return fmt.Errorf("generate content failed: %w", callErr)
		}
		text = resp.Text()
		return nil
	})
	if err != nil {
		return "", err
	}

	return text, nil
}

// buildPrompt 将分析汇总整理为提示词
func buildPrompt(domain string, summary *cohort.Summary) string {
	var b strings.Builder
	b.WriteString("You are a billing assurance analyst. Based on the following revenue leakage analysis, ")
	b.WriteString("provide concise remediation recommendations as a short bullet list.\n\n")
	fmt.Fprintf(&b, "Business domain: %s\n", domain)
	fmt.Fprintf(&b, "Total records analyzed: %d\n", summary.TotalRecords)

	b.WriteString("Leakage distribution:\n")
	for class, count := range summary.LeakageAnalysis.Counts {
		fmt.Fprintf(&b, "  - %s: %d (%.2f%%)\n", class, count, summary.LeakageAnalysis.Percentages[class])
	}

	b.WriteString("Anomaly distribution:\n")
	for class, count := range summary.AnomalyAnalysis.Counts {
		fmt.Fprintf(&b, "  - %s: %d (%.2f%%)\n", class, count, summary.AnomalyAnalysis.Percentages[class])
	}

	fmt.Fprintf(&b, "Records at risk: %d (%.2f%%)\n",
		summary.RiskAssessment.HighRiskCount, summary.RiskAssessment.HighRiskPercentage)

	return b.String()
}
