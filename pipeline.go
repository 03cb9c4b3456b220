package lull

import (
	"context"
	"errors"
	"fmt"

	"github.com/zoobzio/pipz"
)

// Reload carries one document through the Reloader pipeline.
type Reload struct {
	// Previous is the last applied Config, or DefaultConfig before the
	// first document is applied.
	Previous Config

	// Current is decoded from Raw and validated. Middleware may adjust it
	// before it reaches the targets.
	Current Config

	// Raw is the document as received from the watcher.
	Raw []byte
}

// Processing stages that can reject a document.
const (
	stageDecode   = "decode"
	stageValidate = "validate"
	stageApply    = "apply"
)

var (
	reloadID   = pipz.NewIdentity("lull:reload", "Decode, validate and apply a config document")
	decodeID   = pipz.NewIdentity("lull:decode", "Decode a document into Config")
	validateID = pipz.NewIdentity("lull:validate", "Validate a decoded Config")
	applyID    = pipz.NewIdentity("lull:apply", "Configure every target")

	middlewareID   = pipz.NewIdentity("lull:middleware", "Middleware ahead of apply")
	fallbackID     = pipz.NewIdentity("lull:fallback", "Fallback when apply fails")
	errorHandlerID = pipz.NewIdentity("lull:error-handler", "Observe apply failures")
)

// stageError tags a rejection with the stage that produced it.
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// rejectedAt reports the stage behind a pipeline error and the error to
// record. Failures outside decode and validate belong to apply.
func rejectedAt(err error) (string, error) {
	var se *stageError
	if errors.As(err, &se) {
		return se.stage, se.err
	}
	return stageApply, fmt.Errorf("apply failed: %w", err)
}

// ReloadOption wraps the apply stage of a Reloader with pipz processors.
// Decode and validate always run first; options shape what happens to a
// valid Config on its way to the targets.
type ReloadOption func(pipz.Chainable[*Reload]) pipz.Chainable[*Reload]

// buildReloadPipeline assembles decode, validate and the wrapped apply stage.
func buildReloadPipeline(codec Codec, apply pipz.Chainable[*Reload], opts []ReloadOption) pipz.Chainable[*Reload] {
	for _, opt := range opts {
		apply = opt(apply)
	}

	decode := pipz.Apply(decodeID, func(_ context.Context, req *Reload) (*Reload, error) {
		cfg := DefaultConfig()
		if err := codec.Unmarshal(req.Raw, &cfg); err != nil {
			return req, &stageError{stage: stageDecode, err: fmt.Errorf("decode failed: %w", err)}
		}
		req.Current = cfg
		return req, nil
	})

	validate := pipz.Apply(validateID, func(_ context.Context, req *Reload) (*Reload, error) {
		if err := req.Current.Validate(); err != nil {
			return req, &stageError{stage: stageValidate, err: fmt.Errorf("validation failed: %w", err)}
		}
		return req, nil
	})

	return pipz.NewSequence[*Reload](reloadID, decode, validate, apply)
}

// WithMiddleware runs processors, in order, between validation and apply.
//
// Example:
//
//	reloader := lull.NewReloader(watcher, search).Pipeline(
//	    lull.WithMiddleware(
//	        pipz.Apply(capID, func(_ context.Context, r *lull.Reload) (*lull.Reload, error) {
//	            r.Current.Delay = min(r.Current.Delay, lull.Duration(time.Second))
//	            return r, nil
//	        }),
//	    ),
//	)
func WithMiddleware(processors ...pipz.Chainable[*Reload]) ReloadOption {
	return func(p pipz.Chainable[*Reload]) pipz.Chainable[*Reload] {
		all := make([]pipz.Chainable[*Reload], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence(middlewareID, all...)
	}
}

// WithFallback tries each fallback in order when the wrapped stage fails.
// The document is rejected only if every fallback fails too.
func WithFallback(fallbacks ...pipz.Chainable[*Reload]) ReloadOption {
	return func(p pipz.Chainable[*Reload]) pipz.Chainable[*Reload] {
		all := append([]pipz.Chainable[*Reload]{p}, fallbacks...)
		return pipz.NewFallback(fallbackID, all...)
	}
}

// WithErrorHandler passes failures of the wrapped stage to handler.
// The document is still rejected.
func WithErrorHandler(handler pipz.Chainable[*pipz.Error[*Reload]]) ReloadOption {
	return func(p pipz.Chainable[*Reload]) pipz.Chainable[*Reload] {
		return pipz.NewHandle(errorHandlerID, p, handler)
	}
}
