package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies a download failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not originate in this package.
	KindUnknown Kind = iota
	// KindValidation means malformed input: a bad URL, header, or destination.
	KindValidation
	// KindResolution means no object path could be derived.
	KindResolution
	// KindHTTPClient means the source answered with a 4xx status.
	KindHTTPClient
	// KindHTTPServer means the source answered with a 5xx or otherwise unexpected status.
	KindHTTPServer
	// KindTransport means no response was obtained or the body stream broke.
	KindTransport
	// KindStorage means opening, writing, or finalizing the sink failed.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResolution:
		return "resolution"
	case KindHTTPClient:
		return "http_client"
	case KindHTTPServer:
		return "http_server"
	case KindTransport:
		return "transport"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Retryable reports whether an operation failing with this kind may be
// re-invoked as a whole.
func (k Kind) Retryable() bool {
	return k == KindHTTPServer || k == KindTransport
}

// Phase names the orchestrator step in which an operation stopped.
type Phase string

const (
	PhaseBuilt        Phase = "built"
	PhaseSent         Phase = "sent"
	PhaseClassified   Phase = "classified"
	PhasePathResolved Phase = "path_resolved"
	PhaseSinkOpened   Phase = "sink_opened"
	PhaseStreaming    Phase = "streaming"
	PhaseFinalized    Phase = "finalized"
)

// Sentinel causes wrapped by *Error.
var (
	ErrNoFilename        = errors.New("cannot determine filename")
	ErrUnmodifiablePath  = errors.New("cannot modify destination path")
	ErrHeaderSyntax      = errors.New("invalid header")
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")
)

// Error is the error type returned by every fallible operation in this package.
type Error struct {
	Kind       Kind
	Phase      Phase
	StatusCode int // set for KindHTTPClient and KindHTTPServer
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Msg != "":
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is tagged retryable. Errors not produced by
// this package are treated as terminal.
func IsRetryable(err error) bool {
	return KindOf(err).Retryable()
}

// IsTerminal reports whether err must not be retried automatically.
func IsTerminal(err error) bool {
	return err != nil && !IsRetryable(err)
}
