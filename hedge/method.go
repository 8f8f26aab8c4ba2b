package hedge

// EffectivenessMethod is a catalog entry for prospective and retrospective
// effectiveness testing.
type EffectivenessMethod struct {
	ID             int    `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	IsForFairValue bool   `json:"isForFairValue" yaml:"is_for_fair_value"`
}

const IntrinsicRegressionName = "Regression - Change in Intrinsic Value"

// DefaultMethods is the catalog used when none is configured.
var DefaultMethods = []EffectivenessMethod{
	{ID: 1, Name: "Regression - Change in Fair Value", IsForFairValue: true},
	{ID: 2, Name: "Regression - Change in Cash Flows", IsForFairValue: false},
	{ID: 3, Name: IntrinsicRegressionName, IsForFairValue: true},
	{ID: 4, Name: "Dollar Offset", IsForFairValue: true},
	{ID: 5, Name: "Hypothetical Derivative", IsForFairValue: false},
	{ID: 6, Name: "Critical Terms Match", IsForFairValue: false},
}
