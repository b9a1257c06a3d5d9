package remotestore

import "errors"

// Kind classifies a store failure.
type Kind int

const (
	KindMetadataResolution Kind = iota + 1
	KindRecordCreate
	KindUploadTransport
	KindRecordDelete
	KindRecordList
)

// Sentinels matched by (*Failure).Is, one per Kind.
var (
	ErrMetadataResolution = errors.New("metadata resolution failure")
	ErrRecordCreate       = errors.New("record create failure")
	ErrUploadTransport    = errors.New("upload transport failure")
	ErrRecordDelete       = errors.New("record delete failure")
	ErrRecordList         = errors.New("record list failure")
)

func (k Kind) sentinel() error {
	switch k {
	case KindMetadataResolution:
		return ErrMetadataResolution
	case KindRecordCreate:
		return ErrRecordCreate
	case KindUploadTransport:
		return ErrUploadTransport
	case KindRecordDelete:
		return ErrRecordDelete
	case KindRecordList:
		return ErrRecordList
	}
	return nil
}

func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown failure"
}

// Failure is the only error type returned by Store. Message is meant for
// end users; Err keeps the underlying cause.
type Failure struct {
	Kind    Kind
	Message string
	// StatusCode is the HTTP status of the failed exchange, 0 when unknown.
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Is(target error) bool {
	return target != nil && target == f.Kind.sentinel()
}
