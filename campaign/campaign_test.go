package campaign

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erpsite/api/models"
)

func TestTaxonomy_Validate(t *testing.T) {
	tax := Default().Taxonomy

	tests := []struct {
		name       string
		utm        models.UTMParams
		wantErrors []string
	}{
		{"valid full set", models.UTMParams{Source: "google", Medium: "cpc", Campaign: "spring_sale"}, nil},
		{"empty set is valid", models.UTMParams{}, nil},
		{"content and term are unchecked", models.UTMParams{Content: "Hero CTA!", Term: "???"}, nil},
		{"unknown source", models.UTMParams{Source: "tiktok", Medium: "cpc"}, []string{"Invalid UTM source: tiktok"}},
		{"unknown medium", models.UTMParams{Medium: "carrier_pigeon"}, []string{"Invalid UTM medium: carrier_pigeon"}},
		{"bad campaign format", models.UTMParams{Campaign: "Spring Sale"}, []string{"Invalid UTM campaign format: Spring Sale"}},
		{"all three invalid", models.UTMParams{Source: "x", Medium: "y", Campaign: "Z-1"}, []string{
			"Invalid UTM source: x", "Invalid UTM medium: y", "Invalid UTM campaign format: Z-1",
		}},
		{"source is case sensitive", models.UTMParams{Source: "Google"}, []string{"Invalid UTM source: Google"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tax.Validate(tt.utm)
			if len(tt.wantErrors) == 0 {
				assert.True(t, res.IsValid)
				assert.Empty(t, res.Errors)
				return
			}
			assert.False(t, res.IsValid)
			assert.Equal(t, tt.wantErrors, res.Errors)
		})
	}
}

func TestTaxonomy_UnknownSourceYieldsExactlyOneSourceError(t *testing.T) {
	tax := Default().Taxonomy
	for i := 0; i < 20; i++ {
		src := fmt.Sprintf("unlisted_%d", i)
		res := tax.Validate(models.UTMParams{Source: src, Medium: "email", Campaign: "q1_push"})
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0], src)
	}
	for _, src := range tax.Sources {
		res := tax.Validate(models.UTMParams{Source: src})
		assert.True(t, res.IsValid, src)
	}
}

func TestTaxonomy_NoPatternAcceptsAnyCampaign(t *testing.T) {
	tax := Taxonomy{Sources: []string{"google"}, Mediums: []string{"cpc"}}
	assert.True(t, tax.Validate(models.UTMParams{Campaign: "Anything Goes 2025!"}).IsValid)
}

func TestTaxonomy_UncompiledPattern(t *testing.T) {
	tax := Taxonomy{CampaignPattern: `^q[1-4]_`}
	assert.True(t, tax.Validate(models.UTMParams{Campaign: "q2_launch"}).IsValid)
	assert.False(t, tax.Validate(models.UTMParams{Campaign: "launch"}).IsValid)
}

func TestCatalog_Match(t *testing.T) {
	cat := Default().Catalog()

	tests := []struct {
		name string
		utm  models.UTMParams
		want string
	}{
		{"first google cpc wins without campaign", models.UTMParams{Source: "google", Medium: "cpc"}, "brand_search_erp"},
		{"campaign substring narrows", models.UTMParams{Source: "google", Medium: "cpc", Campaign: "spring"}, "spring_sale_search"},
		{"full name matches", models.UTMParams{Source: "google", Medium: "cpc", Campaign: "competitor_conquest"}, "competitor_conquest"},
		{"medium must match", models.UTMParams{Source: "google", Medium: "display", Campaign: "retargeting"}, "manufacturing_retargeting"},
		{"newsletter", models.UTMParams{Source: "newsletter", Medium: "email", Campaign: "monthly"}, "monthly_newsletter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cat.Match(tt.utm)
			require.True(t, ok)
			assert.Equal(t, tt.want, got.Name)
		})
	}
}

func TestCatalog_NoMatch(t *testing.T) {
	cat := Default().Catalog()

	for _, utm := range []models.UTMParams{
		{},
		{Source: "google"},
		{Source: "linkedin", Medium: "cpc"},
		{Source: "google", Medium: "cpc", Campaign: "black_friday"},
		{Source: "Google", Medium: "cpc"},
	} {
		_, ok := cat.Match(utm)
		assert.False(t, ok, "%+v", utm)
	}
}

func TestCatalog_FirstDeclaredWins(t *testing.T) {
	cat := NewCatalog([]CampaignTemplate{
		{Name: "promo_a", Source: "bing", Medium: "cpc"},
		{Name: "promo_b", Source: "bing", Medium: "cpc"},
	})
	got, ok := cat.Match(models.UTMParams{Source: "bing", Medium: "cpc", Campaign: "promo"})
	require.True(t, ok)
	assert.Equal(t, "promo_a", got.Name)
}

func TestLoadFile_Example(t *testing.T) {
	cfg, err := LoadFile("../configs/marketing.example.yaml")
	require.NoError(t, err)

	assert.NotContains(t, cfg.Taxonomy.Sources, "youtube")
	assert.Len(t, cfg.Templates, 3)
	require.Len(t, cfg.Funnels, 1)
	assert.Equal(t, 0.15, cfg.Funnels[0].Stages[3].TargetRate)
	assert.NotEmpty(t, cfg.Events, "events keep defaults")

	res := cfg.Taxonomy.Validate(models.UTMParams{Campaign: "Bad Name"})
	assert.False(t, res.IsValid)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"broken yaml", "taxonomy: [\n"},
		{"bad pattern", "taxonomy:\n  sources: [google]\n  campaign_pattern: '([a-z'\n"},
		{"template missing medium", "templates:\n  - name: x\n    source: google\n"},
		{"funnel with unknown event", "funnels:\n  - name: f\n    stages:\n      - {name: s, event: nope, target_rate: 0.5}\n"},
		{"target rate above one", "funnels:\n  - name: f\n    stages:\n      - {name: s, event: page_view, target_rate: 1.5}\n"},
		{"duplicate event", "events:\n  - {name: a, category: c}\n  - {name: a, category: c}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Lookups(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	f, err := cfg.Funnel("trial")
	require.NoError(t, err)
	assert.Equal(t, "awareness", f.Stages[0].Name)

	_, err = cfg.Funnel("missing")
	assert.ErrorIs(t, err, ErrFunnelNotFound)

	ev, ok := cfg.Event("cta_click")
	require.True(t, ok)
	assert.Equal(t, []string{"cta_id"}, ev.Required)

	assert.Contains(t, cfg.ConversionEvents(), "demo_request")
	assert.NotContains(t, cfg.ConversionEvents(), "page_view")
}

func TestCatalog_TemplateURL(t *testing.T) {
	cat := Default().Catalog()

	tmpl, err := cat.Template("spring_sale_search")
	require.NoError(t, err)
	u, err := tmpl.URL("https://erp.example.com/pricing?plan=annual")
	require.NoError(t, err)
	assert.Equal(t,
		"https://erp.example.com/pricing?plan=annual&utm_campaign=spring_sale_search&utm_content=text_ad&utm_medium=cpc&utm_source=google",
		u)

	_, err = cat.Template("missing")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
