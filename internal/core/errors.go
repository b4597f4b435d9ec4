package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the caller-visible failure taxonomy of a resolution.
type ErrorKind int

const (
	// KindValidation means the input is unsupported; never retried.
	KindValidation ErrorKind = iota
	// KindBlocked means the upstream enforced sign-in or anti-automation.
	KindBlocked
	// KindTransient means retries were exhausted on network or upstream hiccups.
	KindTransient
	// KindFatal means the capability explicitly refused the input.
	KindFatal
	// KindNotFound means extraction succeeded but no audio representation exists.
	KindNotFound
	// KindFallbackExhausted means the primary was blocked and every alternate failed.
	KindFallbackExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindBlocked:
		return "blocked"
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	case KindNotFound:
		return "not_found"
	case KindFallbackExhausted:
		return "fallback_exhausted"
	default:
		return "unknown"
	}
}

var (
	// ErrNoAudioFormat is returned when no candidate carries a real audio codec.
	ErrNoAudioFormat = errors.New("no audio stream found")
	// ErrNoMetadata is returned when fallback could not recover track metadata.
	ErrNoMetadata = errors.New("could not recover track metadata")
	// ErrNoCandidate is returned by a LegacySearcher with no acceptable hit.
	ErrNoCandidate = errors.New("no search candidate")
	// ErrSameCandidate means legacy search only found the URL that was already blocked.
	ErrSameCandidate = errors.New("search candidate is the blocked URL")
)

// ResolutionError is the terminal failure of a resolution.
type ResolutionError struct {
	Kind      ErrorKind
	Reason    string
	Platforms []string
	Err       error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func newResolutionError(kind ErrorKind, reason string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the kind of a resolution error, or KindTransient for anything unclassified.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransient
}

// FailureClass is how a single extraction failure is handled by the retry loop.
type FailureClass int

const (
	FailureTransient FailureClass = iota
	FailureBlocked
	FailureFatal
)

func (c FailureClass) String() string {
	switch c {
	case FailureBlocked:
		return "blocked"
	case FailureFatal:
		return "fatal"
	default:
		return "transient"
	}
}

var (
	blockedSignatures = []string{
		"sign in to confirm",
		"sign in required",
		"login required",
		"not a bot",
		"unusual traffic",
		"automated queries",
		"automated traffic",
		"captcha",
	}
	fatalSignatures = []string{
		"unsupported url",
	}
)

// ClassifyFailure maps a raw extraction error message to a failure class.
// Blocked signatures win over fatal ones.
func ClassifyFailure(message string) FailureClass {
	msg := strings.ToLower(message)
	for _, sig := range blockedSignatures {
		if strings.Contains(msg, sig) {
			return FailureBlocked
		}
	}
	for _, sig := range fatalSignatures {
		if strings.Contains(msg, sig) {
			return FailureFatal
		}
	}
	return FailureTransient
}
