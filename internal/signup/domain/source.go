package domain

import (
	"sort"
	"strings"
)

const (
	SourceReferralLink = "Referral Link"
	SourceColdEmail    = "Cold Email"
)

var sourceLabels = map[string]string{
	"cold_outreach": SourceColdEmail,
}

// SourceOf attributes a signup to the campaign medium it arrived through. Signups
// without a utm_medium came in through someone's referral link.
func SourceOf(utm map[string]any) string {
	if utm == nil {
		return SourceReferralLink
	}
	medium, _ := utm["utm_medium"].(string)
	medium = strings.TrimSpace(medium)
	if medium == "" {
		return SourceReferralLink
	}
	if label, ok := sourceLabels[medium]; ok {
		return label
	}
	return medium
}

type SourceCount struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// SourceBreakdown counts signups per source, largest first. Ties keep first-seen order.
func SourceBreakdown(items []Activity) []SourceCount {
	if len(items) == 0 {
		return []SourceCount{}
	}

	index := map[string]int{}
	out := make([]SourceCount, 0, 4)
	for _, item := range items {
		label := SourceOf(item.UTMParameters)
		if i, ok := index[label]; ok {
			out[i].Value++
			continue
		}
		index[label] = len(out)
		out = append(out, SourceCount{Label: label, Value: 1})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}
