package split

// TotalCheck compares what the bill requires with what a split adds up to
type TotalCheck struct {
	Expected   int64 `json:"expected"`
	Calculated int64 `json:"calculated"`
	Difference int64 `json:"difference"`
}

// ValidationResult is the diagnostic produced for a proposed split
type ValidationResult struct {
	Valid      bool       `json:"valid"`
	Errors     []string   `json:"errors"`
	Warnings   []string   `json:"warnings"`
	TotalCheck TotalCheck `json:"total_check"`
}

// AddError records an error and marks the result invalid
func (v *ValidationResult) AddError(msg string) {
	v.Errors = append(v.Errors, msg)
	v.Valid = false
}

// AddWarning records a non-blocking warning
func (v *ValidationResult) AddWarning(msg string) {
	v.Warnings = append(v.Warnings, msg)
}
