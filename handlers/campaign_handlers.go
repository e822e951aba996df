package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"erpsite/api/campaign"
	"erpsite/api/utils"
)

// CampaignHandlers expose the static marketing configuration and the UTM helpers built on it.
type CampaignHandlers struct {
	Config  *campaign.Config
	catalog *campaign.Catalog
}

func NewCampaignHandlers(cfg *campaign.Config) *CampaignHandlers {
	return &CampaignHandlers{Config: cfg, catalog: cfg.Catalog()}
}

func (h *CampaignHandlers) ParseUTM(c *gin.Context) {
	raw := c.Query("url")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}
	utm := utils.ParseUTM(raw)
	c.JSON(http.StatusOK, gin.H{"utm": utm, "empty": utm.IsEmpty()})
}

// ValidateUTM checks parameters against the taxonomy. A failed check is still a 200; the
// result carries the errors.
func (h *CampaignHandlers) ValidateUTM(c *gin.Context) {
	var req touchUTM
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	utm, ok := req.params()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either url or utm is required"})
		return
	}
	c.JSON(http.StatusOK, h.Config.Taxonomy.Validate(utm))
}

func (h *CampaignHandlers) MatchTemplate(c *gin.Context) {
	var req touchUTM
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	utm, ok := req.params()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either url or utm is required"})
		return
	}

	tmpl, found := h.catalog.Match(utm)
	if !found {
		c.JSON(http.StatusOK, gin.H{"matched": false, "template": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matched": true, "template": tmpl})
}

func (h *CampaignHandlers) ListTemplates(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.Templates())
}

// TemplateURL tags the base URL given in ?base= with the named template's parameters.
func (h *CampaignHandlers) TemplateURL(c *gin.Context) {
	tmpl, err := h.catalog.Template(c.Param("name"))
	if err != nil {
		if errors.Is(err, campaign.ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up template"})
		return
	}

	base := c.Query("base")
	if u, err := url.Parse(base); err != nil || !u.IsAbs() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "base must be an absolute URL"})
		return
	}

	tagged, err := tmpl.URL(base)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"template": tmpl.Name, "url": tagged})
}

func (h *CampaignHandlers) Taxonomy(c *gin.Context) {
	c.JSON(http.StatusOK, h.Config.Taxonomy)
}

func (h *CampaignHandlers) Events(c *gin.Context) {
	c.JSON(http.StatusOK, h.Config.Events)
}

func (h *CampaignHandlers) Funnels(c *gin.Context) {
	c.JSON(http.StatusOK, h.Config.Funnels)
}

// pagePath reduces a page URL to its path for event records.
func pagePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
