package campaign

import (
	"fmt"
	"regexp"
	"slices"

	"erpsite/api/metrics"
	"erpsite/api/models"
)

// Taxonomy is the allow-list UTM parameters are checked against.
type Taxonomy struct {
	Sources         []string `yaml:"sources" json:"sources"`
	Mediums         []string `yaml:"mediums" json:"mediums"`
	CampaignPattern string   `yaml:"campaign_pattern" json:"campaignPattern"`

	pattern *regexp.Regexp
}

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate checks each present field: source and medium against the allow-lists, campaign
// against the pattern when one is configured. Absent fields are always valid.
func (t Taxonomy) Validate(utm models.UTMParams) ValidationResult {
	errs := []string{}

	if utm.Source != "" && !slices.Contains(t.Sources, utm.Source) {
		errs = append(errs, fmt.Sprintf("Invalid UTM source: %s", utm.Source))
		metrics.UTMValidationFailures.WithLabelValues(models.ParamSource).Inc()
	}
	if utm.Medium != "" && !slices.Contains(t.Mediums, utm.Medium) {
		errs = append(errs, fmt.Sprintf("Invalid UTM medium: %s", utm.Medium))
		metrics.UTMValidationFailures.WithLabelValues(models.ParamMedium).Inc()
	}
	if utm.Campaign != "" && t.CampaignPattern != "" && !t.matchCampaign(utm.Campaign) {
		errs = append(errs, fmt.Sprintf("Invalid UTM campaign format: %s", utm.Campaign))
		metrics.UTMValidationFailures.WithLabelValues(models.ParamCampaign).Inc()
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func (t Taxonomy) matchCampaign(campaign string) bool {
	re := t.pattern
	if re == nil {
		// not compiled through Config.Validate; an invalid pattern rejects every campaign
		var err error
		if re, err = regexp.Compile(t.CampaignPattern); err != nil {
			return false
		}
	}
	return re.MatchString(campaign)
}
