package kansatsu

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// PIICategory is a closed PII/PHI category reported by CheckText.
type PIICategory string

const (
	PIICreditCard   PIICategory = "CREDIT_CARD"
	PIIMRN          PIICategory = "MRN"
	PIIDateOfBirth  PIICategory = "DATE_OF_BIRTH"
	PIISSN          PIICategory = "SSN"
	PIIEmail        PIICategory = "EMAIL"
	PIIPhoneUS      PIICategory = "PHONE_NUMBER_US"
	PIIPersonName   PIICategory = "PERSON_NAME"
	PIILocation     PIICategory = "LOCATION"
	PIIDateEntity   PIICategory = "DATE_ENTITY"
	PIIOrganization PIICategory = "ORGANIZATION"
)

// Finding is one detected PII/PHI occurrence. Start and End are byte offsets
// into the scanned text.
type Finding struct {
	Category PIICategory
	Detail   string
	Start    int
	End      int
}

// ScanResult is the outcome of one CheckText call.
type ScanResult struct {
	PIIFound bool
	Count    int
	Findings []Finding
}

// Usage is a normalized token-usage record extracted from an operation result.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Alert is one recorded responsible-AI alert.
type Alert struct {
	Type    string
	Details string
}

// MethodSummary is the per-operation slice of a Summary.
type MethodSummary struct {
	Name             string
	Calls            int64
	TotalDurationMs  float64
	AvgDurationMs    float64
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	AvgTokens        float64
}

// Summary is a point-in-time view of the session metrics. Averages are
// computed when the snapshot is taken, never stored.
type Summary struct {
	ServiceName          string
	TotalCalls           int64
	Errors               int64
	InteractionCount     int64
	AvgInteractionTimeMs float64
	PromptTokens         int64
	CompletionTokens     int64
	TotalTokens          int64
	QualityCount         int
	AvgQualityScore      float64
	Alerts               []Alert
	// Methods is sorted by total duration, descending.
	Methods []MethodSummary
}

// String renders the summary as a human-readable session report.
func (s Summary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Observability Summary — %s\n", s.ServiceName)
	fmt.Fprintf(&b, "Total monitored calls: %d\n", s.TotalCalls)
	fmt.Fprintf(&b, "Total errors: %d\n", s.Errors)
	if s.InteractionCount > 0 {
		fmt.Fprintf(&b, "Average interaction time: %.2f ms (from %d interactions)\n",
			s.AvgInteractionTimeMs, s.InteractionCount)
	} else {
		b.WriteString("Average interaction time: no full interactions completed\n")
	}

	fmt.Fprintf(&b, "LLM usage: prompt=%d completion=%d total=%d\n",
		s.PromptTokens, s.CompletionTokens, s.TotalTokens)

	if s.QualityCount > 0 {
		fmt.Fprintf(&b, "Average quality score: %.2f / 5.0 (from %d ratings)\n",
			s.AvgQualityScore, s.QualityCount)
	} else {
		b.WriteString("Average quality score: no ratings provided\n")
	}

	fmt.Fprintf(&b, "Responsible AI alerts: %d\n", len(s.Alerts))
	for i, a := range s.Alerts {
		fmt.Fprintf(&b, "  %d. type=%s details=%s\n", i+1, a.Type, a.Details)
	}

	if len(s.Methods) == 0 {
		b.WriteString("No methods were monitored\n")
		return b.String()
	}

	b.WriteString("Method performance (sorted by total time):\n")
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METHOD\tCALLS\tAVG TIME\tTOTAL TOKENS\tAVG TOKENS")
	for _, m := range s.Methods {
		fmt.Fprintf(tw, "%s\t%d\t%.2f ms\t%d\t%.0f\n",
			m.Name, m.Calls, m.AvgDurationMs, m.TotalTokens, m.AvgTokens)
	}
	_ = tw.Flush()

	return b.String()
}
