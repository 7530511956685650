package genotype

import (
	"github.com/pkg/errors"
)

// Error taxonomy for the calling engine. Callers should match with the Is*
// helpers, which look through wrapping layers via errors.Cause. All of these
// are participant-scoped: the report assembler skips the affected participant
// and keeps going.
var (
	ErrMalformedQualityFile = errors.New("malformed quality file")
	ErrMalformedSampleFile  = errors.New("malformed sample-list file")
	ErrSampleNotFound       = errors.New("sample not found in sample-list file")
	ErrColumnOutOfRange     = errors.New("dosage column out of range")
	ErrMissingInputFile     = errors.New("missing input file")
)

// IsSampleNotFound reports whether err was caused by a sample-list lookup
// miss, as opposed to a parse failure of the sample-list file itself.
func IsSampleNotFound(err error) bool { return errors.Cause(err) == ErrSampleNotFound }

// IsMissingInput reports whether err was caused by an absent input file.
func IsMissingInput(err error) bool { return errors.Cause(err) == ErrMissingInputFile }
