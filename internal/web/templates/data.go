// Package templates holds the trigger interface's templ components.
// Edit pages.templ and run `templ generate`; pages_templ.go is generated.
package templates

// TriggerData is what the trigger page shows before a run.
type TriggerData struct {
	Source     string
	ImportRole string
	Principal  string
	StartURL   string
}

// ResultData is what the result page shows after a run.
type ResultData struct {
	RunID     string
	Source    string
	TotalRows int
	Created   int
	Duration  string
	Errors    []string
}
