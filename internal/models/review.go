package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString decodes JSON values the model returns inconsistently as a string,
// a number, or a list of either. It always carries the value as a string
// (lists are joined with commas), which is the shape the review UI expects.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}

	var parts []FlexString
	if err := json.Unmarshal(data, &parts); err == nil {
		joined := make([]string, len(parts))
		for i, p := range parts {
			joined[i] = string(p)
		}
		*f = FlexString(strings.Join(joined, ","))
		return nil
	}

	return fmt.Errorf("cannot decode %s as a string value", trimmed)
}

// Finding is one non-compliance observation produced by a review pass.
// The model fills the content fields; ID and the review-workflow flags are
// attached afterwards by the pipeline, never by the model.
type Finding struct {
	ID              string     `json:"id,omitempty" firestore:"id,omitempty"`
	SectionTitle    string     `json:"section_title" firestore:"section_title"`
	PageNumber      FlexString `json:"page_number" firestore:"page_number"`
	Observations    string     `json:"observations" firestore:"observations"`
	RuleCitation    string     `json:"rule_citation" firestore:"rule_citation"`
	Recommendations string     `json:"recommendations" firestore:"recommendations"`
	Category        string     `json:"category" firestore:"category"`
	IsAccepted      bool       `json:"isAccepted" firestore:"isAccepted"`
	IsRejected      bool       `json:"isRejected" firestore:"isRejected"`
	RejectionReason *string    `json:"rejectionReason" firestore:"rejectionReason"`
}

// ReviewReport is the structured output of one review pass.
// OverallConclusion and RawResponse are populated only when the model's
// output could not be parsed; RawResponse preserves the output for audit.
type ReviewReport struct {
	DocumentName      string    `json:"document_name" firestore:"document_name"`
	Sections          []Finding `json:"sections" firestore:"sections"`
	OverallConclusion string    `json:"overall_conclusion,omitempty" firestore:"overall_conclusion,omitempty"`
	RawResponse       string    `json:"raw_response,omitempty" firestore:"raw_response,omitempty"`
}

// TypoDetail is one detected missing-percent-symbol instance.
type TypoDetail struct {
	ID              string     `json:"id,omitempty" firestore:"id,omitempty"`
	Page            FlexString `json:"page" firestore:"page"`
	Context         string     `json:"context" firestore:"context"`
	Recommendation  string     `json:"recommendation" firestore:"recommendation"`
	IsAccepted      bool       `json:"isAccepted" firestore:"isAccepted"`
	IsRejected      bool       `json:"isRejected" firestore:"isRejected"`
	RejectionReason *string    `json:"rejectionReason" firestore:"rejectionReason"`
}

// TypoReport is the output of the typo/date analysis. Error is set instead of
// details when the analysis was blocked or failed.
type TypoReport struct {
	MissingPercentDetails []TypoDetail `json:"missing_percent_details" firestore:"missing_percent_details"`
	Error                 string       `json:"error,omitempty" firestore:"error,omitempty"`
}

// Disclosure presence verdicts. The cutoffs that produce them are business
// rules fixed in services.ClassifyScore.
const (
	DisclosurePresent          = "Present"
	DisclosurePartiallyPresent = "Partially Present"
	DisclosureNotPresent       = "Not Present"
)

// DisclosureCandidate is one disclosure fragment the model extracted from the
// document, with the pages it appears on.
type DisclosureCandidate struct {
	Text  string     `json:"text"`
	Pages FlexString `json:"pages"`
}

// DisclosureMatch is the verdict for one entry of the reference disclosure
// library: the best-matching extracted fragment, its score, and the
// tri-state presence status.
type DisclosureMatch struct {
	ID                 string     `json:"id" firestore:"id"`
	ExpectedDisclosure string     `json:"expected_disclosure" firestore:"expected_disclosure"`
	MatchedText        string     `json:"matched_text" firestore:"matched_text"`
	Pages              FlexString `json:"pages" firestore:"pages"`
	MatchScore         float64    `json:"match_score" firestore:"match_score"`
	Status             string     `json:"status" firestore:"status"`
	IsAccepted         bool       `json:"isAccepted" firestore:"isAccepted"`
	IsRejected         bool       `json:"isRejected" firestore:"isRejected"`
	RejectionReason    *string    `json:"rejectionReason" firestore:"rejectionReason"`
}
