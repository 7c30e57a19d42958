// Package channel is the drone's connection to the importer.
//
// Every outbound document travels inside an Envelope addressed to the importer. In validator mode the
// importer answers each envelope with one of its own whose body carries the verdict.
package channel

import (
	"context"

	"github.com/cockroachdb/errors"
)

//ErrClosed is returned by operations on a channel that has been closed
var ErrClosed = errors.New("channel is closed")

//Channel is a persistent, ordered, request/reply capable connection
type Channel interface {
	//Active reports whether the channel is connected and usable
	Active() bool
	//Send delivers one payload to the importer
	Send(ctx context.Context, payload []byte) error
	//Receive blocks for the next reply body
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

//Envelope frames a payload on the wire
type Envelope struct {
	ID   string `json:"id"`
	To   string `json:"to,omitempty"`
	From string `json:"from,omitempty"`
	Type string `json:"type"`
	Body string `json:"body"`
}

const (
	//TypeIssue is the envelope type of a delivered issue
	TypeIssue = "issue"
	//TypeReply is the envelope type of a validator verdict
	TypeReply = "reply"
)
