package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// Sentinel errors for probe failure modes.
// Callers should use errors.Is() to check for these.
var (
	ErrTLS        = errors.New("probe: TLS handshake or certificate failure")
	ErrConnection = errors.New("probe: connection failure")
	ErrTimeout    = errors.New("probe: request timed out")
	ErrRequest    = errors.New("probe: request failed")
	ErrUnexpected = errors.New("probe: unexpected failure")
)

// ErrorKind classifies a transport failure.
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindTLS
	KindConnection
	KindTimeout
	KindRequest
)

// ProbeError is the classified form of a transport failure. Its message is
// what ends up in ScanResult.Error.
type ProbeError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProbeError) Error() string {
	switch e.Kind {
	case KindTLS:
		return fmt.Sprintf("SSL Error: %v", e.Err)
	case KindConnection:
		return fmt.Sprintf("Connection Error: %v", e.Err)
	case KindTimeout:
		return "Request timed out"
	case KindRequest:
		return fmt.Sprintf("Request failed: %v", e.Err)
	default:
		return fmt.Sprintf("Unexpected error: %v", e.Err)
	}
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *ProbeError) Is(target error) bool {
	switch e.Kind {
	case KindTLS:
		return target == ErrTLS
	case KindConnection:
		return target == ErrConnection
	case KindTimeout:
		return target == ErrTimeout
	case KindRequest:
		return target == ErrRequest
	default:
		return target == ErrUnexpected
	}
}

// classify maps an error from building, sending or reading a request to a
// ProbeError. Order matters: a TLS handshake can also time out, and a
// dial timeout is also a *net.OpError.
func classify(err error) *ProbeError {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe
	}
	switch {
	case isTLSError(err):
		return &ProbeError{Kind: KindTLS, Err: err}
	case isTimeout(err):
		return &ProbeError{Kind: KindTimeout, Err: err}
	case isConnectionError(err):
		return &ProbeError{Kind: KindConnection, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &ProbeError{Kind: KindRequest, Err: err}
	}
	return &ProbeError{Kind: KindUnexpected, Err: err}
}

func isTLSError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		alertErr    tls.AlertError
		authority   x509.UnknownAuthorityError
		hostname    x509.HostnameError
		invalidCert x509.CertificateInvalidError
	)
	if errors.As(err, &verifyErr) || errors.As(err, &recordErr) || errors.As(err, &alertErr) ||
		errors.As(err, &authority) || errors.As(err, &hostname) || errors.As(err, &invalidCert) {
		return true
	}
	return strings.Contains(err.Error(), "tls: ")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
