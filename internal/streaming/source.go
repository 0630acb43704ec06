package streaming

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrSourceTerminal signals that a Source has reached a definitive
// end (EOF with looping disabled) rather than a recoverable error.
var ErrSourceTerminal = errors.New("streaming: source terminated")

// Source is the polymorphic ingestion producer of spec §4.4. Next
// blocks until a chunk is available, ctx is cancelled, or the source
// ends; a nil error with a zero-value DataChunk is never returned.
type Source interface {
	Next(ctx context.Context) (DataChunk, error)
	Close() error
}

// FileReplaySource replays a fixed slice of chunks, optionally looping
// and rate-limiting playback to each chunk's relative timing.
type FileReplaySource struct {
	chunks    []DataChunk
	loop      bool
	rateLimit bool
	idx       int
	started   time.Time
}

// NewFileReplaySource creates a source that replays chunks in order.
func NewFileReplaySource(chunks []DataChunk, loop, rateLimit bool) *FileReplaySource {
	return &FileReplaySource{chunks: chunks, loop: loop, rateLimit: rateLimit}
}

func (s *FileReplaySource) Next(ctx context.Context) (DataChunk, error) {
	if len(s.chunks) == 0 {
		return DataChunk{}, fmt.Errorf("%w: empty replay set", ErrSourceTerminal)
	}
	if s.idx >= len(s.chunks) {
		if !s.loop {
			return DataChunk{}, ErrSourceTerminal
		}
		s.idx = 0
		s.started = time.Time{}
	}
	c := s.chunks[s.idx]
	if s.rateLimit {
		if s.started.IsZero() {
			s.started = time.Now()
		}
		target := s.started.Add(c.Timestamp.Sub(s.chunks[0].Timestamp))
		if d := time.Until(target); d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return DataChunk{}, ctx.Err()
			}
		}
	}
	s.idx++
	return c, nil
}

func (s *FileReplaySource) Close() error { return nil }

// TCPSource reads newline-delimited JSON DataChunk records from a TCP
// connection, reconnecting with an exponential-capped backoff on
// mid-stream errors per spec §4.4.
type TCPSource struct {
	addr   string
	conn   net.Conn
	reader *bufio.Reader
	bo     backoff.BackOff
}

// NewTCPSource creates a reconnecting NDJSON TCP source.
func NewTCPSource(addr string) *TCPSource {
	eb := backoff.NewExponentialBackOff()
	eb.MaxInterval = 30 * time.Second
	eb.MaxElapsedTime = 0 // retry indefinitely; the controller owns overall lifetime
	return &TCPSource{addr: addr, bo: eb}
}

func (s *TCPSource) Next(ctx context.Context) (DataChunk, error) {
	for {
		if s.conn == nil {
			if err := s.connect(ctx); err != nil {
				return DataChunk{}, err
			}
		}
		line, err := s.reader.ReadString('\n')
		if err != nil {
			s.conn.Close()
			s.conn = nil
			if ctx.Err() != nil {
				return DataChunk{}, ctx.Err()
			}
			continue // reconnect and retry on the next loop iteration
		}
		var chunk DataChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue // skip malformed lines, keep the connection alive
		}
		s.bo.Reset()
		return chunk, nil
	}
}

func (s *TCPSource) connect(ctx context.Context) error {
	for {
		d := net.Dialer{}
		conn, err := d.DialContext(ctx, "tcp", s.addr)
		if err == nil {
			s.conn = conn
			s.reader = bufio.NewReader(conn)
			return nil
		}
		wait := s.bo.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("streaming: tcp source giving up on %s: %w", s.addr, err)
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *TCPSource) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// SerialSource reads newline-delimited JSON DataChunk records from an
// already-open serial port connection (an io.ReadCloser opened by the
// caller with the appropriate baud/parity settings). Unlike TCPSource
// it fails fast on any read error, per spec §4.4 ("serial: fail-fast").
type SerialSource struct {
	port   io.ReadCloser
	reader *bufio.Reader
}

// NewSerialSource wraps an open serial port connection.
func NewSerialSource(port io.ReadCloser) *SerialSource {
	return &SerialSource{port: port, reader: bufio.NewReader(port)}
}

func (s *SerialSource) Next(ctx context.Context) (DataChunk, error) {
	line, err := s.reader.ReadString('\n')
	if err != nil {
		return DataChunk{}, fmt.Errorf("streaming: serial source read: %w", err)
	}
	var chunk DataChunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return DataChunk{}, fmt.Errorf("streaming: serial source decode: %w", err)
	}
	return chunk, nil
}

func (s *SerialSource) Close() error { return s.port.Close() }

// LSLSource bridges a Lab Streaming Layer inlet via an external helper
// subprocess that exposes the resolved stream as newline-delimited
// JSON over a local HTTP long-poll endpoint — LSL has no native Go
// binding, so the bridge is an opaque child process, the same
// boundary pkg/ddaproc uses for the DDA binary.
type LSLSource struct {
	cmd    *exec.Cmd
	stdout *bufio.Reader
}

// NewLSLSource starts the bridge helper for the named LSL stream.
func NewLSLSource(ctx context.Context, bridgeBinary, streamName string) (*LSLSource, error) {
	cmd := exec.CommandContext(ctx, bridgeBinary, "--stream", streamName)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("streaming: lsl bridge stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("streaming: lsl bridge start: %w", err)
	}
	return &LSLSource{cmd: cmd, stdout: bufio.NewReader(stdout)}, nil
}

func (s *LSLSource) Next(ctx context.Context) (DataChunk, error) {
	line, err := s.stdout.ReadString('\n')
	if err != nil {
		return DataChunk{}, fmt.Errorf("%w: lsl bridge closed: %v", ErrSourceTerminal, err)
	}
	var chunk DataChunk
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return DataChunk{}, fmt.Errorf("streaming: lsl bridge decode: %w", err)
	}
	return chunk, nil
}

func (s *LSLSource) Close() error {
	if s.cmd.Process != nil {
		return s.cmd.Process.Kill()
	}
	return nil
}
