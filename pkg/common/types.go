package common

import (
	"time"
)

// SearchResult is a single organic result scraped from a search results page
type SearchResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// Heading is a page heading together with its level (1-6)
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Paragraph is a non-empty paragraph; Index is its 1-based position among all paragraphs
type Paragraph struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// List is a non-empty ordered or unordered list
type List struct {
	Index int      `json:"index"`
	Type  string   `json:"type"`
	Items []string `json:"items"`
}

// Section groups the text that follows a heading until the next heading
type Section struct {
	Heading string `json:"heading"`
	Level   int    `json:"level"`
	Content string `json:"content"`
}

// PageContent is the structured content extracted from a visited page
type PageContent struct {
	Title           string      `json:"title"`
	URL             string      `json:"url"`
	ExtractedAt     time.Time   `json:"extracted_at"`
	MainContent     string      `json:"main_content"`
	MetaDescription string      `json:"meta_description"`
	Headings        []Heading   `json:"headings"`
	Paragraphs      []Paragraph `json:"paragraphs"`
	Lists           []List      `json:"lists"`
	Sections        []Section   `json:"sections"`
}

// ContentError replaces PageContent when structured extraction failed
type ContentError struct {
	Error   string `json:"error"`
	Title   string `json:"title"`
	RawText string `json:"raw_text"`
}

// Status is the outcome of a single site visit
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// WebsiteRecord is one entry of the persisted research dataset.
// Exactly one of Content and ContentError is set when the page was reached.
type WebsiteRecord struct {
	URL          string        `json:"url"`
	Title        string        `json:"title,omitempty"`
	Status       Status        `json:"status"`
	Content      *PageContent  `json:"content,omitempty"`
	ContentError *ContentError `json:"content_error,omitempty"`
	Screenshots  []string      `json:"screenshots"`
	Error        string        `json:"error,omitempty"`
	DetectedBot  bool          `json:"detected_bot,omitempty"`
	DetectionSrc string        `json:"detection_src,omitempty"`
	VisitedAt    time.Time     `json:"visited_at"`
}

// Research outcome statuses
const (
	OutcomeCompleted = "completed"
	OutcomeNoResults = "no_results"
	OutcomeFailed    = "failed"
)

// ResearchOutcome summarizes a research run for the caller
type ResearchOutcome struct {
	Status           string          `json:"status"`
	Niche            string          `json:"niche"`
	Query            string          `json:"query"`
	RunID            string          `json:"run_id"`
	Message          string          `json:"message,omitempty"`
	WebsitesAnalyzed int             `json:"websites_analyzed"`
	DataFilename     string          `json:"data_filename,omitempty"`
	AnalysisPrompt   string          `json:"analysis_prompt,omitempty"`
	Records          []WebsiteRecord `json:"-"`
}
