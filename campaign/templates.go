package campaign

import (
	"errors"
	"fmt"
	"strings"

	"erpsite/api/models"
	"erpsite/api/utils"
)

// Catalog matches live UTM parameters against the ordered template list.
type Catalog struct {
	templates []CampaignTemplate
}

func NewCatalog(templates []CampaignTemplate) *Catalog {
	return &Catalog{templates: append([]CampaignTemplate(nil), templates...)}
}

// Templates returns the catalog in declaration order.
func (c *Catalog) Templates() []CampaignTemplate {
	return append([]CampaignTemplate(nil), c.templates...)
}

// Match returns the first template whose source and medium equal the UTM values and whose
// name contains the UTM campaign, when one is given. Declaration order decides ties.
func (c *Catalog) Match(utm models.UTMParams) (CampaignTemplate, bool) {
	for _, t := range c.templates {
		if t.Source != utm.Source || t.Medium != utm.Medium {
			continue
		}
		if utm.Campaign != "" && !strings.Contains(t.Name, utm.Campaign) {
			continue
		}
		return t, true
	}
	return CampaignTemplate{}, false
}

var ErrTemplateNotFound = errors.New("campaign template not found")

// Template looks a template up by name.
func (c *Catalog) Template(name string) (CampaignTemplate, error) {
	for _, t := range c.templates {
		if t.Name == name {
			return t, nil
		}
	}
	return CampaignTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
}

// URL tags base with the template's source, medium, content and term; the template name
// becomes utm_campaign.
func (t CampaignTemplate) URL(base string) (string, error) {
	return utils.BuildCampaignURL(base, models.UTMParams{
		Source:   t.Source,
		Medium:   t.Medium,
		Campaign: t.Name,
		Content:  t.Content,
		Term:     t.Term,
	})
}
