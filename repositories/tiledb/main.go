package tiledb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/Jeffail/gabs"
)

/*
	Request/response transport to the out-of-process storage
	engine. One logical request = one short-lived connection :
	connect to the engine's unix socket, write a single
	structured request, read until the peer closes or a full
	response arrives, then close.

	The wire contract is a fixed, versioned table of named
	operations (below) with typed parameter objects -- the
	engine dispatches them from a static table, so the contract
	is testable independently of either side.
*/

const (
	OpPing          = "ping"
	OpQueryVariants = "query_variants"
	OpGetStats      = "get_stats"
	OpWriteVariants = "write_variants"
	OpWriteSamples  = "write_samples"
	OpQuerySamples  = "query_samples"
	OpCreateArrays  = "create_arrays"
	OpConsolidate   = "consolidate"

	OpAlleleFrequency           = "allele_frequency"
	OpPopulationFrequencyLookup = "population_frequency_lookup"
	OpPopulationFrequencyStats  = "population_frequency_stats"
)

var (
	// connection-level failures (refused, reset, malformed body)
	ErrTransport = errors.New("tiledb transport failure")
	// no response within the per-call deadline
	ErrRequestTimeout = errors.New("tiledb request timed out")
)

// EngineError is a logical error reported by the engine itself,
// i.e. the process understood the request but refused it
type EngineError struct {
	Operation string
	Message   string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error on '%s' : %s", e.Operation, e.Message)
}

type Client struct {
	SocketPath     string
	RequestTimeout time.Duration
}

func NewClient(socketPath string, requestTimeout time.Duration) *Client {
	return &Client{
		SocketPath:     socketPath,
		RequestTimeout: requestTimeout,
	}
}

// Call performs one operation against the engine and returns the
// parsed response body. Engine-reported `{"error": ...}` payloads
// come back as *EngineError; everything connection-level comes
// back wrapping ErrTransport or ErrRequestTimeout.
func (c *Client) Call(ctx context.Context, operation string, params map[string]interface{}) (*gabs.Container, error) {
	if params == nil {
		params = map[string]interface{}{}
	}

	requestBytes, marshallErr := json.Marshal(map[string]interface{}{
		"operation": operation,
		"params":    params,
	})
	if marshallErr != nil {
		return nil, fmt.Errorf("%w : encoding '%s' request : %v", ErrTransport, operation, marshallErr)
	}

	dialer := net.Dialer{}
	conn, dialErr := dialer.DialContext(ctx, "unix", c.SocketPath)
	if dialErr != nil {
		return nil, classifyNetErr(operation, dialErr)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.RequestTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)

	if _, writeErr := conn.Write(requestBytes); writeErr != nil {
		return nil, classifyNetErr(operation, writeErr)
	}

	// half-close the write side so the engine knows the
	// request body is complete
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	responseBytes, readErr := io.ReadAll(conn)
	if readErr != nil {
		return nil, classifyNetErr(operation, readErr)
	}

	parsed, parseErr := gabs.ParseJSON(responseBytes)
	if parseErr != nil {
		return nil, fmt.Errorf("%w : malformed '%s' response body : %v", ErrTransport, operation, parseErr)
	}

	if parsed.Exists("error") {
		message, _ := parsed.Path("error").Data().(string)
		return nil, &EngineError{Operation: operation, Message: message}
	}

	return parsed, nil
}

// Ping is the liveness probe; deliberately short so a dead
// engine is detected quickly rather than after a full
// request timeout
func (c *Client) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := c.Call(pingCtx, OpPing, nil)
	return err
}

func classifyNetErr(operation string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w : operation '%s' : %v", ErrRequestTimeout, operation, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w : operation '%s' : %v", ErrRequestTimeout, operation, err)
	}
	return fmt.Errorf("%w : operation '%s' : %v", ErrTransport, operation, err)
}
