// Package eventlogger provides an easy way to write logs describing
// generation events to a file (or any other writer).
package eventlogger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	bingo "github.com/Parkreiner/climbingbingo"
)

// ErrClosed is returned when writing to a logger that has been closed.
var ErrClosed = errors.New("logger is closed")

type logWriteResult struct {
	bytesWritten int
	err          error
}

type loggerRequest struct {
	content    []byte
	resultChan chan<- logWriteResult
}

// EventLogger handles logs of two types:
//  1. Automatic logs in response to every generation event
//  2. Arbitrary content sent through its Write method
//
// All writes happen on a single goroutine, so lines are never interleaved.
// Once instantiated, the logger will automatically start logging events. The
// logger can be disposed by calling the Close method.
type EventLogger struct {
	out          *logrus.Logger
	loggerChan   chan loggerRequest
	stopChan     chan struct{}
	disposedChan chan struct{}
	closeOnce    sync.Once
}

var _ io.WriteCloser = &EventLogger{}

// Init is used to instantiate an EventLogger via the New function.
type Init struct {
	Subscriber bingo.EventSubscriber
	Output     io.Writer
	// Formatter defaults to logrus' JSON formatter when nil.
	Formatter logrus.Formatter
}

// New instantiates an EventLogger and automatically subscribes it to every
// generation event.
func New(init Init) (*EventLogger, error) {
	if init.Subscriber == nil {
		return nil, errors.New("event logger needs a subscriber")
	}
	if init.Output == nil {
		return nil, errors.New("event logger needs an output")
	}

	formatter := init.Formatter
	if formatter == nil {
		formatter = &logrus.JSONFormatter{}
	}
	out := logrus.New()
	out.SetOutput(init.Output)
	out.SetFormatter(formatter)
	out.SetLevel(logrus.InfoLevel)

	allEventsChan, unsub, err := init.Subscriber.Subscribe(nil)
	if err != nil {
		return nil, fmt.Errorf("unable to subscribe to all events: %w", err)
	}

	el := &EventLogger{
		out:          out,
		loggerChan:   make(chan loggerRequest),
		stopChan:     make(chan struct{}),
		disposedChan: make(chan struct{}),
	}

	go func() {
		defer close(el.disposedChan)
		defer unsub()

		for {
			select {
			case <-el.stopChan:
				el.drain(allEventsChan)
				return
			case req := <-el.loggerChan:
				b, err := out.Out.Write(req.content)
				req.resultChan <- logWriteResult{
					bytesWritten: b,
					err:          err,
				}
			case event, ok := <-allEventsChan:
				if !ok {
					return
				}
				el.logEvent(event)
			}
		}
	}()

	return el, nil
}

func (el *EventLogger) logEvent(event bingo.GenerationEvent) {
	entry := el.out.WithFields(logrus.Fields{
		"event_id":   event.ID.String(),
		"event_type": string(event.Type),
		"mode":       string(event.Mode),
		"size":       event.Size,
		"free":       event.Free,
		"pool":       event.Pool,
		"attempts":   event.Attempts,
		"score":      event.Score,
	}).WithTime(event.Created)

	if event.Type == bingo.EventTypeFailed {
		entry.Warn(event.Message)
		return
	}
	entry.WithField("grid_id", event.GridID.String()).Info(event.Message)
}

// drain logs any events that were already delivered before the logger was
// closed.
func (el *EventLogger) drain(events <-chan bingo.GenerationEvent) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			el.logEvent(event)
		default:
			return
		}
	}
}

// Write sends raw content to the logger's output. It blocks until the
// content has been written.
func (el *EventLogger) Write(content []byte) (int, error) {
	resultChan := make(chan logWriteResult, 1)
	select {
	case <-el.disposedChan:
		return 0, ErrClosed
	case el.loggerChan <- loggerRequest{content: content, resultChan: resultChan}:
	}

	result := <-resultChan
	return result.bytesWritten, result.err
}

// Close terminates an EventLogger, rendering it so that it can no longer
// receive logs. It will also close its event subscription. This function is
// safe to call multiple times; calling it more than once results in a no-op.
func (el *EventLogger) Close() error {
	el.closeOnce.Do(func() {
		close(el.stopChan)
	})
	<-el.disposedChan
	return nil
}

// OpenFile opens (or creates) a file for appending event logs.
func OpenFile(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log %q: %w", path, err)
	}
	return file, nil
}
