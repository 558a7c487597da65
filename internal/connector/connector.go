// SPDX-FileCopyrightText: The enclaverun authors
//
// SPDX-License-Identifier: Apache-2.0

// Package connector bridges a raw guest channel to message-oriented
// consumers.
//
// [Spawn] takes exclusive ownership of the channel and runs one writer
// and one reader loop in the background. All traffic goes through these
// single loops, which resolves the arbitration question on a duplicated
// channel: submitted messages are written in submission order and inbound
// messages are delivered in arrival order. The raw channel must not be
// touched directly once it is handed to the bridge.
package connector

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/enclaverun/enclaverun/internal/framing"
)

// Handle exposes a guest channel as an ordered message interface.
type Handle struct {
	channel io.ReadWriteCloser
	out     chan []byte
	in      chan []byte
	done    chan struct{}

	closeOnce sync.Once
	group     errgroup.Group

	// readErr is set by the reader loop before it closes the in channel
	// and read by consumers only after the in channel is closed.
	readErr error
}

// Spawn starts the bridge for the given channel and returns its handle.
//
// The bridge owns the channel exclusively from here on and closes it on
// [Handle.Close].
func Spawn(channel io.ReadWriteCloser) *Handle {
	h := &Handle{
		channel: channel,
		out:     make(chan []byte),
		in:      make(chan []byte),
		done:    make(chan struct{}),
	}

	h.group.Go(h.writeLoop)
	h.group.Go(h.readLoop)

	return h
}

// Send submits one outbound message. Messages are written to the channel
// framed, in submission order.
func (h *Handle) Send(ctx context.Context, payload []byte) error {
	select {
	case h.out <- payload:
		return nil
	case <-h.done:
		return ErrHandleClosed
	case <-ctx.Done():
		return fmt.Errorf("send: %w", ctx.Err())
	}
}

// Receive awaits the next inbound message. Messages are delivered in the
// order they arrive on the channel.
func (h *Handle) Receive(ctx context.Context) ([]byte, error) {
	select {
	case payload, ok := <-h.in:
		if !ok {
			return nil, h.receiveErr()
		}

		return payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("receive: %w", ctx.Err())
	}
}

// Call submits one message and awaits the next inbound message as its
// response. It must not be used concurrently with other calls or
// receives, the channel carries no request correlation.
func (h *Handle) Call(ctx context.Context, request []byte) ([]byte, error) {
	err := h.Send(ctx, request)
	if err != nil {
		return nil, err
	}

	return h.Receive(ctx)
}

// Close stops both loops and closes the channel. Safe to call multiple
// times. It returns the first loop error, if any.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		close(h.done)
		// Closing the channel unblocks the reader loop.
		_ = h.channel.Close()
	})

	err := h.group.Wait()
	if err != nil {
		return fmt.Errorf("connector: %w", err)
	}

	return nil
}

func (h *Handle) writeLoop() error {
	for {
		select {
		case payload := <-h.out:
			err := framing.Send(h.channel, payload)
			if err != nil {
				return fmt.Errorf("write channel: %w", err)
			}
		case <-h.done:
			return nil
		}
	}
}

func (h *Handle) readLoop() error {
	defer close(h.in)

	for {
		payload, err := framing.Receive(h.channel)
		if err != nil {
			select {
			case <-h.done:
				// Failure caused by our own close.
				return nil
			default:
			}

			h.readErr = err

			return fmt.Errorf("read channel: %w", err)
		}

		select {
		case h.in <- payload:
		case <-h.done:
			return nil
		}
	}
}

func (h *Handle) receiveErr() error {
	select {
	case <-h.done:
		return ErrHandleClosed
	default:
	}

	if h.readErr != nil {
		return fmt.Errorf("receive: %w", h.readErr)
	}

	return ErrHandleClosed
}
