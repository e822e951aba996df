// Package funnel turns per-event session counts into stage conversion reports.
package funnel

import (
	"erpsite/api/campaign"
	"erpsite/api/utils"
)

type StageResult struct {
	Name  string `json:"name"`
	Event string `json:"event"`
	Count uint64 `json:"count"`
	// ConversionRate is Count over the previous stage's count; the first stage is always 1
	// when it has any traffic.
	ConversionRate float64 `json:"conversionRate"`
	TargetRate     float64 `json:"targetRate"`
	MeetsTarget    bool    `json:"meetsTarget"`
	DropOff        uint64  `json:"dropOff"`
}

type Report struct {
	Funnel            string        `json:"funnel"`
	Stages            []StageResult `json:"stages"`
	OverallConversion float64       `json:"overallConversion"`
	// Bottleneck names the stage furthest below its target, empty when all targets are met.
	Bottleneck string `json:"bottleneck,omitempty"`
}

// Evaluate builds a report for def from counts keyed by event name. Missing events count as
// zero.
func Evaluate(def campaign.FunnelDefinition, counts map[string]uint64) Report {
	r := Report{Funnel: def.Name, Stages: make([]StageResult, 0, len(def.Stages))}

	var prev uint64
	worstGap := 0.0
	for i, st := range def.Stages {
		n := counts[st.Event]
		res := StageResult{Name: st.Name, Event: st.Event, Count: n, TargetRate: st.TargetRate}

		if i == 0 {
			if n > 0 {
				res.ConversionRate = 1
			}
		} else {
			res.ConversionRate = utils.SafeDiv(float64(n), float64(prev))
			if prev > n {
				res.DropOff = prev - n
			}
		}
		res.ConversionRate = utils.Round2(res.ConversionRate*100) / 100
		res.MeetsTarget = res.ConversionRate >= st.TargetRate

		if gap := st.TargetRate - res.ConversionRate; gap > worstGap {
			worstGap = gap
			r.Bottleneck = st.Name
		}

		r.Stages = append(r.Stages, res)
		prev = n
	}

	if len(def.Stages) > 0 {
		first := counts[def.Stages[0].Event]
		last := counts[def.Stages[len(def.Stages)-1].Event]
		r.OverallConversion = utils.Round2(utils.SafeDiv(float64(last), float64(first))*100) / 100
	}
	return r
}

// Events lists the distinct event names a funnel needs counts for.
func Events(def campaign.FunnelDefinition) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, st := range def.Stages {
		if _, ok := seen[st.Event]; ok {
			continue
		}
		seen[st.Event] = struct{}{}
		out = append(out, st.Event)
	}
	return out
}
