package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinSchemasValidate(t *testing.T) {
	require.NoError(t, Supermarket().Validate())
	require.NoError(t, Telecom().Validate())
}

func TestByDomain(t *testing.T) {
	sch, err := ByDomain(DomainSupermarket)
	require.NoError(t, err)
	assert.Equal(t, DomainSupermarket, sch.Domain)

	sch, err = ByDomain(DomainTelecom)
	require.NoError(t, err)
	assert.Equal(t, DomainTelecom, sch.Domain)

	_, err = ByDomain("banking")
	assert.Error(t, err)
}

func TestLabelOrderContract(t *testing.T) {
	// 两个域的解码顺序相反，是与模型工件间的固定契约
	assert.Equal(t, [2]LabelDim{LabelLeakage, LabelAnomaly}, Supermarket().LabelOrder)
	assert.Equal(t, [2]LabelDim{LabelAnomaly, LabelLeakage}, Telecom().LabelOrder)
}

func TestValidateRejectsBrokenSchema(t *testing.T) {
	sch := Supermarket()
	sch.NoLeakageValue = sch.LeakageValue
	assert.Error(t, sch.Validate())

	sch = Supermarket()
	sch.LabelOrder = [2]LabelDim{LabelLeakage, LabelLeakage}
	assert.Error(t, sch.Validate())

	sch = Supermarket()
	sch.SortKeyColumn = ""
	assert.Error(t, sch.Validate())

	sch = Supermarket()
	sch.DerivedTotal.Terms[0].Sign = 2
	assert.Error(t, sch.Validate())
}

func TestNumericColumnSetIncludesDerivedColumns(t *testing.T) {
	set := Supermarket().NumericColumnSet()

	assert.True(t, set["Billed_Amount"])
	assert.True(t, set["Invoice_Num_Int"])
	assert.True(t, set["Is_Duplicate"])
	assert.True(t, set["actual_billing_amnt"])
	assert.True(t, set["Billing_Date_year"])
	assert.True(t, set["Billing_Date_month"])
	assert.True(t, set["Billing_Date_day"])

	// 原始日期列与分类列不在数值集合内
	assert.False(t, set["Billing_Date"])
	assert.False(t, set["Store_Branch"])
}

func TestFeatureDenySet(t *testing.T) {
	// 超市域保留原始日期列作为特征
	set := Supermarket().FeatureDenySet()
	assert.True(t, set["Invoice_Number"])
	assert.False(t, set["Billing_Date"])

	// 电信域分解后剔除原始日期列
	set = Telecom().FeatureDenySet()
	assert.True(t, set["Customer_ID"])
	assert.True(t, set["Billing_date"])
	assert.True(t, set["Plan_start_date"])
	assert.True(t, set["Plan_end_date"])
}

func TestDatePartColumns(t *testing.T) {
	parts := DatePartColumns("Billing_Date")
	assert.Equal(t, [3]string{"Billing_Date_year", "Billing_Date_month", "Billing_Date_day"}, parts)
}
