package narrative

import "strings"

type Figure struct {
	Actual     string `json:"actual,omitempty"`
	Consensus  string `json:"consensus,omitempty"`
	BeatOrMiss string `json:"beatOrMiss,omitempty"`
}

type EarningsItem struct {
	Period            string   `json:"period"`
	Revenue           *Figure  `json:"revenue,omitempty"`
	EPS               *Figure  `json:"eps,omitempty"`
	MarginsCommentary string   `json:"marginsCommentary,omitempty"`
	KeyDrivers        []string `json:"keyDrivers,omitempty"`
	NotableOneOffs    []string `json:"notableOneOffs,omitempty"`
	FXImpact          string   `json:"fxImpact,omitempty"`
	ManagementTone    string   `json:"managementTone,omitempty"`
	StockReaction     string   `json:"stockReaction,omitempty"`
}

type GuidanceOutlook struct {
	LatestGuidance string `json:"latestGuidance,omitempty"`
	Changes        string `json:"changes,omitempty"`
	VsConsensus    string `json:"vsConsensus,omitempty"`
	NearTermView   string `json:"nearTermView,omitempty"`
	MidTermView    string `json:"midTermView,omitempty"`
}

type FinalAssessment struct {
	Summary         string   `json:"summary"`
	ShortTerm       string   `json:"shortTerm,omitempty"`
	MediumTerm      string   `json:"mediumTerm,omitempty"`
	LongTerm        string   `json:"longTerm,omitempty"`
	Actionables     []string `json:"actionables,omitempty"`
	WouldChangeView []string `json:"wouldChangeView,omitempty"`
}

// AnalystReport is the structured equity analysis returned by Analyze.
type AnalystReport struct {
	CompanyID       string          `json:"companyId"`
	CompanySnapshot string          `json:"companySnapshot"`
	BullCase        []string        `json:"bullCase"`
	BearCase        []string        `json:"bearCase"`
	WarningSigns    []string        `json:"warningSigns"`
	EarningsLast5   []EarningsItem  `json:"earningsLast5"`
	GuidanceOutlook GuidanceOutlook `json:"guidanceOutlook"`
	FinalAssessment FinalAssessment `json:"finalAssessment"`
}

const maxEarnings = 5

func sanitizeReport(r AnalystReport) AnalystReport {
	if r.BullCase == nil {
		r.BullCase = []string{}
	}
	if r.BearCase == nil {
		r.BearCase = []string{}
	}
	if r.WarningSigns == nil {
		r.WarningSigns = []string{}
	}
	if r.EarningsLast5 == nil {
		r.EarningsLast5 = []EarningsItem{}
	}
	if len(r.EarningsLast5) > maxEarnings {
		r.EarningsLast5 = r.EarningsLast5[:maxEarnings]
	}
	for i := range r.EarningsLast5 {
		e := &r.EarningsLast5[i]
		e.Revenue = sanitizeFigure(e.Revenue)
		e.EPS = sanitizeFigure(e.EPS)
	}
	switch c := strings.ToLower(strings.TrimSpace(r.GuidanceOutlook.Changes)); c {
	case "raised", "lowered", "reaffirmed", "mixed", "unknown":
		r.GuidanceOutlook.Changes = c
	case "":
	default:
		r.GuidanceOutlook.Changes = "unknown"
	}
	return r
}

func sanitizeFigure(f *Figure) *Figure {
	if f == nil {
		return nil
	}
	switch v := strings.ToLower(strings.TrimSpace(f.BeatOrMiss)); v {
	case "beat", "miss", "inline":
		f.BeatOrMiss = v
	default:
		f.BeatOrMiss = ""
	}
	return f
}
