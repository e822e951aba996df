package models

import (
	"net/url"
)

// Recognized query parameter names, in canonical order.
const (
	ParamSource   = "utm_source"
	ParamMedium   = "utm_medium"
	ParamCampaign = "utm_campaign"
	ParamContent  = "utm_content"
	ParamTerm     = "utm_term"
)

var UTMParamNames = []string{ParamSource, ParamMedium, ParamCampaign, ParamContent, ParamTerm}

// UTMParams is the set of campaign parameters observed on a URL. Absent parameters are
// empty strings and are omitted from JSON.
type UTMParams struct {
	Source   string `json:"utm_source,omitempty" yaml:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty" yaml:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty" yaml:"utm_campaign,omitempty"`
	Content  string `json:"utm_content,omitempty" yaml:"utm_content,omitempty"`
	Term     string `json:"utm_term,omitempty" yaml:"utm_term,omitempty"`
}

func (u UTMParams) IsEmpty() bool {
	return u == UTMParams{}
}

// Get returns the value for a recognized parameter name.
func (u UTMParams) Get(name string) string {
	switch name {
	case ParamSource:
		return u.Source
	case ParamMedium:
		return u.Medium
	case ParamCampaign:
		return u.Campaign
	case ParamContent:
		return u.Content
	case ParamTerm:
		return u.Term
	}
	return ""
}

// Set assigns a recognized parameter; unknown names are ignored.
func (u *UTMParams) Set(name, value string) {
	switch name {
	case ParamSource:
		u.Source = value
	case ParamMedium:
		u.Medium = value
	case ParamCampaign:
		u.Campaign = value
	case ParamContent:
		u.Content = value
	case ParamTerm:
		u.Term = value
	}
}

// Query returns only the parameters that are set.
func (u UTMParams) Query() url.Values {
	v := url.Values{}
	for _, name := range UTMParamNames {
		if val := u.Get(name); val != "" {
			v.Set(name, val)
		}
	}
	return v
}

// Encode serializes the set as a query string without the leading '?'.
func (u UTMParams) Encode() string {
	return u.Query().Encode()
}

// Map returns the present parameters keyed by their query names.
func (u UTMParams) Map() map[string]string {
	out := make(map[string]string, len(UTMParamNames))
	for _, name := range UTMParamNames {
		if val := u.Get(name); val != "" {
			out[name] = val
		}
	}
	return out
}

type TouchType string

const (
	TouchFirst   TouchType = "first"
	TouchLast    TouchType = "last"
	TouchSession TouchType = "session"
)

func (t TouchType) Valid() bool {
	switch t {
	case TouchFirst, TouchLast, TouchSession:
		return true
	}
	return false
}

// UTMAttribution is one history entry, appended for every stored touch.
type UTMAttribution struct {
	UTM       UTMParams `json:"utm"`
	Timestamp int64     `json:"timestamp"` // epoch milliseconds
	SessionID string    `json:"sessionId"`
	PageURL   string    `json:"pageUrl"`
}

// AttributionSnapshot is the read model returned to the front end.
type AttributionSnapshot struct {
	Current      *UTMParams       `json:"current"`
	FirstTouch   *UTMParams       `json:"firstTouch"`
	LastTouch    *UTMParams       `json:"lastTouch"`
	SessionTouch *UTMParams       `json:"sessionTouch"`
	History      []UTMAttribution `json:"history"`
	SessionID    string           `json:"sessionId,omitempty"`
}
