// Package analysis turns episode text into a validated structured Analysis.
//
// The Invoker truncates long text (head-biased, deterministic), frames the
// request with the rapid-response analyst system prompt, and validates the
// model's JSON reply field by field. Invalid replies are returned to the model
// with the list of problems for a bounded number of repair turns; a reply that
// is still invalid fails with services.ErrAnalysisSchemaInvalid and is never
// persisted.
package analysis
