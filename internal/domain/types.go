package domain

// Segment states. A segment only moves forward through explicit user
// action, except that clearing its target reverts it to initial.
const (
	Initial    = "initial"
	Translated = "translated"
	Final      = "final"
)

// Match types.
const (
	TM = "tm"
	MT = "mt"
)

// Self is the origin label recorded on matches created by propagation.
const Self = "Self"

// None is the sentinel memory id meaning "do not store this pair anywhere".
const None = "none"

// Segment kinds as stored in the segments.type column.
const (
	KindSegment   = "S"
	KindIgnorable = "I"
)

// SegmentView is one row of a paginated editor listing. Source and Target
// carry placeholder-rendered, HTML-safe markup, not raw XLIFF.
type SegmentView struct {
	Index     int    `json:"index"`
	File      string `json:"file"`
	Unit      string `json:"unit"`
	Segment   string `json:"segment"`
	State     string `json:"state"`
	Translate bool   `json:"translate"`
	Preserve  bool   `json:"preserve"`
	Source    string `json:"source"`
	Target    string `json:"target"`
	Match     int    `json:"match"`
}

// Match is a stored alternative translation for a segment.
type Match struct {
	File       string `json:"file"`
	Unit       string `json:"unit"`
	Segment    string `json:"segment"`
	MatchID    string `json:"matchId"`
	Origin     string `json:"origin"`
	Type       string `json:"type"`
	Similarity int    `json:"similarity"`
	Source     string `json:"source"`
	Target     string `json:"target"`
}

// Propagated reports one side effect of confirming a segment: either a
// recorded match on another segment or an auto-applied translation.
type Propagated struct {
	File    string `json:"file"`
	Unit    string `json:"unit"`
	Segment string `json:"segment"`
	Match   int    `json:"match"`
	Target  string `json:"target,omitempty"`
}

// Status aggregates document word counts by state.
type Status struct {
	Total      int    `json:"total"`
	Translated int    `json:"translated"`
	Confirmed  int    `json:"confirmed"`
	Percentage int    `json:"percentage"`
	Text       string `json:"text"`
	SVG        string `json:"svg"`
}

// Filter narrows a segment listing. Zero value means no filtering.
type Filter struct {
	Text          string `json:"text"`
	Language      string `json:"language"`
	CaseSensitive bool   `json:"caseSensitive"`
	Untranslated  bool   `json:"untranslated"`
	Regexp        bool   `json:"regexp"`
}
