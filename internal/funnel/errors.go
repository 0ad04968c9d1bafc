package funnel

import "fmt"

// MissingDataError reports that an expected input dataset carried no rows for
// the entity/date combination. Callers skip the entity and continue.
type MissingDataError struct {
	Entity  string
	Dataset string
}

func (e *MissingDataError) Error() string {
	return fmt.Sprintf("funnel: no %s data for entity %q", e.Dataset, e.Entity)
}

// InvalidCountError reports a negative source count or a stage whose derived
// counts cannot be reconciled, indicating corrupt upstream data. Callers skip
// the entity and continue.
type InvalidCountError struct {
	Entity string
	Stage  string
	Count  int
}

func (e *InvalidCountError) Error() string {
	return fmt.Sprintf("funnel: invalid count %d at %q for entity %q", e.Count, e.Stage, e.Entity)
}
