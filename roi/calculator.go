// Package roi derives the savings and payback figures shown by the ROI calculator widget.
package roi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/go-playground/validator/v10"

	"erpsite/api/metrics"
	"erpsite/api/models"
)

const (
	// CompetitorMonthlyRate is the list price the current system is compared against.
	CompetitorMonthlyRate = 299.0
	// PerUserLicenseCost is the yearly cost attributed to each seat of the current ERP.
	PerUserLicenseCost = 1000.0
	// EmployeeValue is the yearly value of one employee used for efficiency gains.
	EmployeeValue = 50000.0
)

// CompetitorAnnualCost is the yearly price of the product.
const CompetitorAnnualCost = CompetitorMonthlyRate * 12

var ErrInvalidInputs = errors.New("invalid ROI inputs")

type Calculator struct {
	validate    *validator.Validate
	onCalculate func(context.Context, models.ROIInputs, models.ROIResults)
}

type Option func(*Calculator)

// WithReporter registers a callback invoked after every successful calculation.
func WithReporter(fn func(context.Context, models.ROIInputs, models.ROIResults)) Option {
	return func(c *Calculator) { c.onCalculate = fn }
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{validate: validator.New()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate validates in and returns the derived figures. When annual savings are zero or
// negative the payback period is unreachable: PaybackPeriod is 0 and PaybackReachable false.
func (c *Calculator) Calculate(ctx context.Context, in models.ROIInputs) (models.ROIResults, error) {
	if err := c.validate.Struct(in); err != nil {
		return models.ROIResults{}, fmt.Errorf("%w: %w", ErrInvalidInputs, err)
	}
	for _, f := range []float64{
		in.CurrentERPCost, in.CurrentERPUsers, in.CurrentERPSupportCost,
		in.Employees, in.ExpectedEfficiencyGain, in.ImplementationTimeline,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return models.ROIResults{}, fmt.Errorf("%w: non-finite value", ErrInvalidInputs)
		}
	}

	res := Compute(in)
	for _, f := range []float64{
		res.AnnualSavings, res.ThreeYearROI, res.PaybackPeriod, res.EfficiencyValue, res.TotalSavings,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return models.ROIResults{}, fmt.Errorf("%w: result out of range", ErrInvalidInputs)
		}
	}

	metrics.ROICalculations.WithLabelValues(strconv.FormatBool(res.PaybackReachable)).Inc()
	if c.onCalculate != nil {
		c.onCalculate(ctx, in, res)
	}
	return res, nil
}

// Compute applies the formulas without validation.
func Compute(in models.ROIInputs) models.ROIResults {
	currentAnnualCost := in.CurrentERPCost + in.CurrentERPUsers*PerUserLicenseCost + in.CurrentERPSupportCost
	directSavings := currentAnnualCost - CompetitorAnnualCost
	efficiencyValue := in.Employees * EmployeeValue * (in.ExpectedEfficiencyGain / 100)
	annualSavings := directSavings + efficiencyValue

	res := models.ROIResults{
		AnnualSavings:   annualSavings,
		ThreeYearROI:    annualSavings*3 - CompetitorAnnualCost*3,
		EfficiencyValue: efficiencyValue,
		TotalSavings:    annualSavings * 3,
	}
	if annualSavings > 0 {
		res.PaybackPeriod = (CompetitorAnnualCost / (annualSavings / 12)) * in.ImplementationTimeline
		res.PaybackReachable = true
	}
	return res
}
