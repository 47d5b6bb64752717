package entity

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	ReportKeyIndividualReports = "individual-reports"
	ReportKeyKeywordContexts   = "keyword-contexts"
)

// SessionDocument is the whole persisted session: every collection, keyword
// list and materialised run report.
type SessionDocument struct {
	KeywordLists map[string]KeywordList `json:"keyword-lists"`
	Collections  map[string]Collection  `json:"collections"`
	Runs         map[string]RunReport   `json:"runs"`
}

func NewSessionDocument() SessionDocument {
	return SessionDocument{
		KeywordLists: make(map[string]KeywordList),
		Collections:  make(map[string]Collection),
		Runs:         make(map[string]RunReport),
	}
}

// Normalize replaces nil maps left by a partial document with empty ones.
func (d *SessionDocument) Normalize() {
	if d.KeywordLists == nil {
		d.KeywordLists = make(map[string]KeywordList)
	}
	if d.Collections == nil {
		d.Collections = make(map[string]Collection)
	}
	if d.Runs == nil {
		d.Runs = make(map[string]RunReport)
	}
}

// Clone copies the maps and records so callers can read without holding the
// store lock. Run reports are copied key by key.
func (d SessionDocument) Clone() SessionDocument {
	out := NewSessionDocument()
	for id, kwl := range d.KeywordLists {
		out.KeywordLists[id] = kwl.Clone()
	}
	for id, c := range d.Collections {
		out.Collections[id] = c
	}
	for id, r := range d.Runs {
		out.Runs[id] = r.Clone()
	}
	return out
}

// Collection is a directory-backed set of source files. Its id doubles as the
// directory name under the collections root.
type Collection struct {
	Id              string `json:"id"`
	Name            string `json:"name"`
	CollectionCount int    `json:"collection-count"`
	ShortenedName   string `json:"shortened-name"`
	Description     string `json:"description"`
	Themes          string `json:"themes"`
	Notes           string `json:"notes"`
}

type KeywordList struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	DateAdded string   `json:"date-added"`
	Include   []string `json:"include"`
	Exclude   []string `json:"exclude"`
}

func (k KeywordList) Clone() KeywordList {
	k.Include = append([]string{}, k.Include...)
	k.Exclude = append([]string{}, k.Exclude...)
	return k
}

// RunReport is the report produced by the external tool. Its shape is owned by
// the tool, so top-level fields are kept as raw JSON. The only field written
// here is individual-reports.<name>.keyword-contexts.
type RunReport map[string]json.RawMessage

func (r RunReport) Clone() RunReport {
	if r == nil {
		return nil
	}
	out := make(RunReport, len(r))
	for k, v := range r {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// ErrIntervieweeNotFound is returned when a report has no individual report
// for the requested interviewee.
var ErrIntervieweeNotFound = fmt.Errorf("individual report not found")

// WithKeywordContexts returns a copy of the report whose individual report
// for interviewee has its keyword-contexts replaced by contexts. Every other
// field is carried over untouched.
func (r RunReport) WithKeywordContexts(interviewee string, contexts json.RawMessage) (RunReport, error) {
	raw, ok := r[ReportKeyIndividualReports]
	if !ok {
		return nil, ErrIntervieweeNotFound
	}

	var reports map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &reports); err != nil {
		return nil, fmt.Errorf("decode %s: %w", ReportKeyIndividualReports, err)
	}

	report, ok := reports[interviewee]
	if !ok || report == nil {
		return nil, ErrIntervieweeNotFound
	}
	if len(contexts) == 0 {
		contexts = json.RawMessage("null")
	}
	report[ReportKeyKeywordContexts] = contexts

	encoded, err := json.Marshal(reports)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ReportKeyIndividualReports, err)
	}

	out := r.Clone()
	out[ReportKeyIndividualReports] = encoded
	return out, nil
}

// ReconciliationWarning records a collection entry with no matching directory.
type ReconciliationWarning struct {
	CollectionId string `json:"collection_id"`
	ExpectedPath string `json:"expected_path"`
	DocumentPath string `json:"document_path"`
}

// UploadFile is one uploaded file, opened lazily so large uploads stream
// straight to disk.
type UploadFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}
