// Package diagnosis builds the structured record sent to the assistant and
// stored in the history.
package diagnosis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMethodChoice is returned for a method choice outside 1..len(Methods).
var ErrInvalidMethodChoice = errors.New("invalid method choice")

// NotAvailable is the code description used when no DTC was given.
const NotAvailable = "N/A"

// Methods are the six steps of the diagnostic procedure, selected by a
// 1-based index.
var Methods = [...]string{
	"Verify the Complaint",
	"Determine Related Symptoms",
	"Analyze Related Symptoms",
	"Isolate the Problem Area",
	"Repair the Problem Area",
	"Verify Proper Operation",
}

// Method returns the label for a 1-based choice.
func Method(choice int) (string, error) {
	if choice < 1 || choice > len(Methods) {
		return "", fmt.Errorf("%w: %d (want 1-%d)", ErrInvalidMethodChoice, choice, len(Methods))
	}
	return Methods[choice-1], nil
}

// Record is one diagnosis request after code resolution. It is never
// modified once assembled.
type Record struct {
	CustomerComplaint string  `json:"customer_complaint"`
	DiagnosticMethod  string  `json:"diagnostic_method"`
	DTCCode           *string `json:"dtc_code"`
	DTCDescription    string  `json:"dtc_description"`
	RelatedSymptoms   string  `json:"related_symptoms"`
	ProblemArea       string  `json:"problem_area"`
}

// Clone returns a copy of r that shares no memory with it.
func (r Record) Clone() Record {
	if r.DTCCode != nil {
		code := *r.DTCCode
		r.DTCCode = &code
	}
	return r
}

// Field is a labelled record value.
type Field struct {
	Label string
	Value string
}

// Fields lists the record values in declaration order.
func (r Record) Fields() []Field {
	code := ""
	if r.DTCCode != nil {
		code = *r.DTCCode
	}
	return []Field{
		{Label: "Customer Complaint", Value: r.CustomerComplaint},
		{Label: "Diagnostic Method", Value: r.DiagnosticMethod},
		{Label: "DTC Code", Value: code},
		{Label: "Code Description", Value: r.DTCDescription},
		{Label: "Related Symptoms", Value: r.RelatedSymptoms},
		{Label: "Problem Area", Value: r.ProblemArea},
	}
}

// Searcher renders a code lookup; *codes.Table implements it.
type Searcher interface {
	Search(code string) string
}

// Input carries the raw form values.
type Input struct {
	CustomerComplaint string
	MethodChoice      int
	DTCCode           *string
	RelatedSymptoms   string
	ProblemArea       string
}

// Assemble resolves the method label and the code description.
func Assemble(codes Searcher, in Input) (Record, error) {
	method, err := Method(in.MethodChoice)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		CustomerComplaint: in.CustomerComplaint,
		DiagnosticMethod:  method,
		DTCDescription:    NotAvailable,
		RelatedSymptoms:   in.RelatedSymptoms,
		ProblemArea:       in.ProblemArea,
	}
	if in.DTCCode != nil {
		code := *in.DTCCode
		rec.DTCCode = &code
		if strings.TrimSpace(code) != "" && codes != nil {
			rec.DTCDescription = codes.Search(code)
		}
	}
	return rec, nil
}
