package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrPayloadNotFound = errors.New("core: payload not found")
	ErrMailboxEmpty    = errors.New("core: mailbox has no pending payloads")
	ErrRegionNotFound  = errors.New("core: region not found")
	// ErrInvalidInput marks caller-supplied values that fail validation.
	ErrInvalidInput = errors.New("core: invalid input")
	// ErrNotConfigured marks missing wiring. It maps to an internal error.
	ErrNotConfigured = errors.New("core: not configured")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...)
}

func notConfigured(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotConfigured}, args...)...)
}

// Destination is the resolved delivery target carried by a payload. Header
// signing and region resolution happen before enqueue, so the fields are
// opaque here.
type Destination struct {
	RegionName string
	Method     string
	Path       string
	Headers    map[string]string
	Body       []byte
}

func (d Destination) Validate() error {
	if strings.TrimSpace(d.RegionName) == "" {
		return invalidInput("destination region name is required")
	}
	if strings.TrimSpace(d.Method) == "" {
		return invalidInput("destination method is required")
	}
	if strings.TrimSpace(d.Path) == "" {
		return invalidInput("destination path is required")
	}
	return nil
}

type Payload struct {
	ID          int64
	MailboxName string
	Destination Destination
	ScheduleFor time.Time
	Attempts    int
	CreatedAt   time.Time
}

type EnqueueRequest struct {
	MailboxName string
	Destination Destination
	// ScheduleFor defaults to the enqueue time.
	ScheduleFor time.Time
}

func (r EnqueueRequest) Validate() error {
	if strings.TrimSpace(r.MailboxName) == "" {
		return invalidInput("mailbox name is required")
	}
	return r.Destination.Validate()
}

// MailboxHead is the lowest pending id of one mailbox.
type MailboxHead struct {
	MailboxName string
	HeadID      int64
}

// Outcome is the result of one delivery step. An HTTP attempt yields one of
// delivered, rejected or retry.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRetry     Outcome = "retry"
	// OutcomeDiscarded marks a payload dropped after exhausting its attempts,
	// without a final delivery.
	OutcomeDiscarded Outcome = "discarded"
)

// Terminal reports whether the payload is resolved.
func (o Outcome) Terminal() bool {
	return o == OutcomeDelivered || o == OutcomeRejected || o == OutcomeDiscarded
}

const (
	ReasonOK             = "ok"
	ReasonAttemptsExceed = "attempts_exceed"
	ReasonRace           = "race"
	ReasonHostError      = "host_error"
	ReasonRestricted     = "restricted"
	ReasonConflict       = "conflict"
	ReasonTimeoutReset   = "timeout_reset"
	ReasonServerError    = "server_error"
	ReasonNotFound       = "not_found"
	ReasonBadRequest     = "bad_request"
	ReasonUnauthorized   = "unauthorized"
	ReasonAPIError       = "api_error"
)

type DeliveryResult struct {
	Outcome    Outcome
	Reason     string
	StatusCode int
	Attempts   int
	Err        error
}

type DrainStats struct {
	PayloadID  int64
	Mailbox    string
	Race       bool
	Delivered  int
	Rejected   int
	Discarded  int
	Halted     bool
	HaltReason string
}

// Resolved counts payloads deleted during the drain.
func (s DrainStats) Resolved() int {
	return s.Delivered + s.Rejected + s.Discarded
}

type TickStats struct {
	DueMailboxes int
	Rescheduled  int
	Dispatched   int
}

type Region struct {
	Name     string
	Address  string
	Category string
}

type Alert struct {
	Message     string
	PayloadID   int64
	MailboxName string
	Region      Region
	Err         error
}

type TransportRequest struct {
	Method  string
	BaseURL string
	Path    string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}
