package entity

import (
	"github.com/joseph-ayodele/docextract/constants"
)

// BatchFile is one input of a batch run.
type BatchFile struct {
	FileName string
	Data     []byte
	Type     constants.DocumentType // optional hint; empty means infer from FileName
}

// BatchOutcome holds either a result or the error for one input file.
type BatchOutcome struct {
	FileName string
	Result   *AnalysisResult
	Err      error
}

func (o BatchOutcome) OK() bool { return o.Err == nil && o.Result != nil }

// ErrorMessage returns the error text, or "" on success.
func (o BatchOutcome) ErrorMessage() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}
