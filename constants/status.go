package constants

// OutcomeStatus is the per-file status of a batch run.
type OutcomeStatus string

// Stable values (written to exports).
const (
	OutcomeOK      OutcomeStatus = "OK"       // analysis returned a result
	OutcomeFailed  OutcomeStatus = "FAILED"   // analysis returned an error
	OutcomeLowConf OutcomeStatus = "LOW_CONF" // result below the confidence gate
	OutcomeNoItems OutcomeStatus = "NO_ITEMS" // result but no usable line items
)
