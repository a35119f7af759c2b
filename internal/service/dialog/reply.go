package dialog

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrEmptyUtterance is returned when a turn arrives without any text.
var ErrEmptyUtterance = errors.New("dialog: utterance is required")

// errReplyClosed signals that the consumer abandoned the stream via Close.
var errReplyClosed = errors.New("dialog: reply closed by consumer")

// CollaboratorError wraps a failure in an external dependency (record sink,
// free-form responder). The turn fails but the session stays usable.
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("dialog: %s collaborator failed: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

type fragment struct {
	text string
	err  error
}

// Reply is a finite, single-pass stream of reply text fragments. Recv returns
// io.EOF once the reply is complete. A consumer that stops reading early must
// call Close, otherwise the session's turn stays open.
type Reply struct {
	ch   chan fragment
	done chan struct{}
	once sync.Once
}

func newReply(buf int) *Reply {
	return &Reply{
		ch:   make(chan fragment, buf),
		done: make(chan struct{}),
	}
}

// literalReply wraps a fixed string as an already-finished stream.
func literalReply(text string) *Reply {
	r := newReply(1)
	r.ch <- fragment{text: text}
	close(r.ch)
	return r
}

// Recv returns the next fragment. io.EOF terminates a fully-delivered reply;
// any other error terminates a failed one.
func (r *Reply) Recv() (string, error) {
	f, ok := <-r.ch
	if !ok {
		return "", io.EOF
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// Close abandons the stream. Idempotent. Fragments not yet received are
// dropped and the producing turn records nothing.
func (r *Reply) Close() {
	r.once.Do(func() { close(r.done) })
}

// Text drains the stream and returns the joined reply.
func (r *Reply) Text() (string, error) {
	defer r.Close()

	var b strings.Builder
	for {
		token, err := r.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(token)
	}
}
