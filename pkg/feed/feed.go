// Package feed delivers a stream of flagged account addresses to a host
// that re-renders the transaction graph on every switch.
//
// Two sources are provided: [ReaderSource] reads one address per line
// (stdin, a file) and [RedisSource] subscribes to a Redis pub/sub channel
// the alerting backend publishes to. [Watch] drives either one.
package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// DefaultChannel is the pub/sub channel flagged addresses are published on.
const DefaultChannel = "flowgraph:addresses"

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("feed closed")

// Source yields addresses.
type Source interface {
	// Next blocks until the next address arrives. It returns io.EOF when
	// the source is exhausted and ctx.Err() when ctx is done.
	Next(ctx context.Context) (string, error)

	// Close releases the source.
	Close() error
}

// ParseMessage extracts an address from a feed message: either the bare
// address or a JSON object with an "address" or "wallet_id" field. Blank
// lines and '#' comments yield "".
func ParseMessage(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" || strings.HasPrefix(msg, "#") {
		return ""
	}
	if !strings.HasPrefix(msg, "{") {
		return msg
	}
	var m struct {
		Address  string `json:"address"`
		WalletID string `json:"wallet_id"`
	}
	if err := json.Unmarshal([]byte(msg), &m); err != nil {
		return ""
	}
	if m.Address != "" {
		return strings.TrimSpace(m.Address)
	}
	return strings.TrimSpace(m.WalletID)
}

// ReaderSource reads one message per line.
type ReaderSource struct {
	lines chan string
	errc  chan error
	done  chan struct{}
	once  sync.Once
	close func() error
}

// NewReaderSource starts reading r. If r is an io.Closer, Close closes it.
func NewReaderSource(r io.Reader) *ReaderSource {
	s := &ReaderSource{
		lines: make(chan string),
		errc:  make(chan error, 1),
		done:  make(chan struct{}),
		close: func() error { return nil },
	}
	if c, ok := r.(io.Closer); ok {
		s.close = c.Close
	}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case s.lines <- sc.Text():
			case <-s.done:
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		s.errc <- err
		close(s.lines)
	}()
	return s
}

// Next implements Source.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	for {
		select {
		case <-s.done:
			return "", ErrClosed
		default:
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-s.done:
			return "", ErrClosed
		case line, ok := <-s.lines:
			if !ok {
				err := <-s.errc
				s.errc <- err
				return "", err
			}
			if addr := ParseMessage(line); addr != "" {
				return addr, nil
			}
		}
	}
}

// Close implements Source. The reader goroutine exits once its pending
// read returns.
func (s *ReaderSource) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.close()
	})
	return err
}

// Handler is called for every address switch.
type Handler func(ctx context.Context, address string) error

// Watch calls fn for each address from src until src is exhausted or ctx is
// done. Consecutive repeats of the current address are skipped. Handler
// errors are logged and do not stop the watch; source errors do.
func Watch(ctx context.Context, src Source, logger *log.Logger, fn Handler) error {
	current := ""
	for {
		addr, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if addr == current {
			logger.Debug("address unchanged, skipping", "address", addr)
			continue
		}
		current = addr
		if err := fn(ctx, addr); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("address switch failed", "address", addr, "error", err)
		}
	}
}
