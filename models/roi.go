package models

// ROIInputs are the six figures entered into the calculator widget.
type ROIInputs struct {
	CurrentERPCost         float64 `json:"currentERPCost" validate:"gte=0"`
	CurrentERPUsers        float64 `json:"currentERPUsers" validate:"gte=0"`
	CurrentERPSupportCost  float64 `json:"currentERPSupportCost" validate:"gte=0"`
	Employees              float64 `json:"employees" validate:"gte=0"`
	ExpectedEfficiencyGain float64 `json:"expectedEfficiencyGain" validate:"gte=0,lte=100"`
	ImplementationTimeline float64 `json:"implementationTimeline" validate:"gte=0"`
}

type ROIResults struct {
	AnnualSavings   float64 `json:"annualSavings"`
	ThreeYearROI    float64 `json:"threeYearROI"`
	PaybackPeriod   float64 `json:"paybackPeriod"`
	EfficiencyValue float64 `json:"efficiencyValue"`
	TotalSavings    float64 `json:"totalSavings"`
	// PaybackReachable is false when annual savings are zero or negative; PaybackPeriod is 0 then.
	PaybackReachable bool `json:"paybackReachable"`
}
