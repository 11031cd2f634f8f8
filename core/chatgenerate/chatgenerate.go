package chatgenerate

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/aix/core/reassembler"
	"github.com/leofalp/aix/core/throttle"
	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

// UpdateFunc receives accumulator snapshots. It is called once with an empty
// accumulator before anything else happens and once with done set after the
// generation ended, whatever the outcome. Calls in between are throttled.
type UpdateFunc func(acc reassembler.Accumulator, done bool)

// Options configure one generation.
type Options struct {
	// Registry resolves the vendor; nil uses DefaultRegistry.
	Registry *Registry
	// HTTPClient sends the request; nil uses http.DefaultClient.
	HTTPClient *http.Client
	Streaming  bool
	// Adapter is passed to the vendor adapter. An empty Dialect is filled
	// from the access.
	Adapter ai.AdapterOptions

	// ThrottleLevel 0 notifies on every event. ThrottleRate defaults to
	// throttle.DefaultRate.
	ThrottleLevel int
	ThrottleRate  float64

	MergeIssuesIntoText bool
	Debug               DebugSink
	// Tap sees every particle before the reassembler does, in order.
	Tap func(particle.Particle)

	// Timeout bounds the dispatch and the whole read. Expiry ends the
	// generation with a client-read issue.
	Timeout time.Duration
}

// Execute runs one generation. See the package documentation for the
// error contract.
func Execute(ctx context.Context, access ai.Access, model ai.ModelParams, req *ai.ChatGenerateRequest, opts Options, onUpdate UpdateFunc) (reassembler.Accumulator, error) {
	if onUpdate == nil {
		onUpdate = func(reassembler.Accumulator, bool) {}
	}
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry()
	}
	rate := opts.ThrottleRate
	if rate <= 0 {
		rate = throttle.DefaultRate
	}

	observer := observability.ObserverFromContext(ctx)
	ctx, span := observer.StartSpan(ctx, observability.SpanChatGenerate,
		observability.String(observability.AttrLLMDialect, string(access.Dialect)),
		observability.String(observability.AttrLLMModel, model.ID),
		observability.Bool(observability.AttrLLMStreaming, opts.Streaming),
	)
	ctx = observability.ContextWithSpan(ctx, span)
	defer span.End()

	g := &generation{
		ctx:      ctx,
		opts:     opts,
		observer: observer,
		span:     span,
		emitter:  particle.NewEmitter(),
		re:       reassembler.New(reassembler.Options{MergeIssuesIntoText: opts.MergeIssuesIntoText}),
		throttle: throttle.New(rate, opts.ThrottleLevel),
		onUpdate: onUpdate,
	}

	// 1. Initial empty state, before any I/O.
	onUpdate(g.re.Snapshot(), false)

	// 2. Lower and self-check the request.
	d, err := g.prepare(access, model, req)
	if err != nil {
		span.RecordError(err)
		observer.Error(ctx, "chat generate prepare failed",
			observability.Error(err),
			observability.String(observability.AttrLLMDialect, string(access.Dialect)),
		)
		g.emitter.SetRPCTerminatingIssue(particle.IssueDispatchPrepare, err.Error(), particle.EndIssueRPC)
		return g.complete(), err
	}

	// 3. Dispatch and parse until the stream ends or terminates.
	g.dispatch(d)
	return g.complete(), nil
}

type generation struct {
	ctx      context.Context
	opts     Options
	observer observability.Provider
	span     observability.Span
	emitter  *particle.Emitter
	re       *reassembler.Reassembler
	throttle *throttle.Decimator
	onUpdate UpdateFunc
}

// prepared is a request ready to send.
type prepared struct {
	vendor   ai.Vendor
	request  *ai.VendorRequest
	endpoint ai.Endpoint
	body     []byte
	parser   ai.Parser
}

func (g *generation) prepare(access ai.Access, model ai.ModelParams, req *ai.ChatGenerateRequest) (*prepared, error) {
	if req == nil {
		return nil, ai.NewValidationError("", "nil request")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	vendor, err := g.opts.Registry.Lookup(access.Dialect)
	if err != nil {
		return nil, err
	}

	adapter := g.opts.Adapter
	if adapter.Dialect == "" {
		adapter.Dialect = access.Dialect
	}
	vreq, err := vendor.ToVendorRequest(g.ctx, model, req, g.opts.Streaming, adapter)
	if err != nil {
		return nil, err
	}
	endpoint, err := vendor.Endpoint(access, model, vreq)
	if err != nil {
		return nil, fmt.Errorf("%s: endpoint: %w", vendor.Name(), err)
	}
	body, err := vreq.JSON()
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", vendor.Name(), err)
	}

	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMVendor, vendor.Name()),
		observability.Bool(observability.AttrLLMSystemSplit, vreq.SystemSplit),
		observability.StringSlice(observability.AttrLLMHotfix, vreq.Hotfixes),
		observability.Int(observability.AttrHTTPRequestBodySize, len(body)),
	}
	g.span.SetAttributes(attrs...)
	g.span.AddEvent(observability.EventRequestPrepared, attrs...)

	if g.opts.Debug != nil {
		headers := utils.RedactHeaders(endpoint.Headers)
		g.opts.Debug.RecordDispatch(g.ctx, DispatchRecord{
			ID:      uuid.NewString(),
			Vendor:  vendor.Name(),
			Dialect: string(adapter.Dialect),
			URL:     endpoint.URL,
			Headers: headers,
			Body:    string(body),
		})
		g.emitter.AddDebugDispatchRequest(endpoint.URL, headers, string(body))
		g.pump()
	}

	return &prepared{
		vendor:   vendor,
		request:  vreq,
		endpoint: endpoint,
		body:     body,
		parser:   vendor.NewParser(g.ctx, adapter.Dialect, model, vreq.Streaming),
	}, nil
}

func (g *generation) dispatch(d *prepared) {
	callCtx, cancel := g.ctx, context.CancelFunc(func() {})
	if g.opts.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(g.ctx, g.opts.Timeout)
	}
	defer cancel()

	callCtx, span := g.observer.StartSpan(callCtx, observability.SpanLLMRequest,
		observability.String(observability.AttrLLMVendor, d.vendor.Name()),
		observability.String(observability.AttrHTTPURL, d.endpoint.URL),
	)
	callCtx = observability.ContextWithSpan(callCtx, span)
	defer span.End()

	if d.request.Streaming {
		g.stream(callCtx, d)
		return
	}
	g.whole(callCtx, d)
}

func (g *generation) stream(callCtx context.Context, d *prepared) {
	res, err := utils.DoPostStream(callCtx, g.opts.HTTPClient, d.endpoint.URL, d.body, d.endpoint.Headers)
	if err != nil {
		g.fetchFailed(callCtx, d, err)
		return
	}
	defer utils.CloseWithLog(res.Body)

	scanner := utils.NewSSEScanner(res.Body)
	for first := true; ; first = false {
		// Buffered events are dropped once the call is cancelled.
		if err := callCtx.Err(); err != nil {
			g.transportFailed(callCtx, &ai.TransportFailure{Op: ai.TransportAbort, Err: err})
			return
		}
		event, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			g.endOfStream(d)
			return
		}
		if err != nil {
			g.transportFailed(callCtx, &ai.TransportFailure{Op: ai.TransportRead, Err: err})
			return
		}
		if first {
			g.span.AddEvent(observability.EventFirstEvent, observability.String(observability.AttrLLMEventName, event.Name))
		}

		if err := d.parser(g.emitter, ai.StreamEvent{Name: event.Name, Data: []byte(event.Data)}); err != nil {
			g.parseFailed(d, event.Name, err)
			return
		}
		g.pump()
		if g.emitter.Terminated() {
			return
		}
		g.throttle.Decimate(func() { g.onUpdate(g.re.Snapshot(), false) })
	}
}

// endOfStream lets the parser release content it held back.
func (g *generation) endOfStream(d *prepared) {
	if err := d.parser(g.emitter, ai.StreamEvent{End: true}); err != nil {
		g.parseFailed(d, "", err)
		return
	}
	g.pump()
}

func (g *generation) whole(callCtx context.Context, d *prepared) {
	_, body, err := utils.DoPostSync(callCtx, g.opts.HTTPClient, d.endpoint.URL, d.body, d.endpoint.Headers)
	if err != nil {
		g.fetchFailed(callCtx, d, err)
		return
	}
	g.span.AddEvent(observability.EventFirstEvent)
	if err := d.parser(g.emitter, ai.StreamEvent{Data: body}); err != nil {
		g.parseFailed(d, "", err)
	}
}

// pump moves queued particles into the reassembler in order.
func (g *generation) pump() {
	particles := g.emitter.Flush()
	if g.opts.Tap != nil {
		for _, p := range particles {
			g.opts.Tap(p)
		}
	}
	g.re.ApplyAll(particles)
}

func (g *generation) fetchFailed(callCtx context.Context, d *prepared, err error) {
	var statusErr *utils.StatusError
	if errors.As(err, &statusErr) {
		issue := &ai.DialectIssue{
			Vendor:     d.vendor.Name(),
			StatusCode: statusErr.StatusCode,
			Message:    upstreamMessage(statusErr.Body),
		}
		if span := observability.SpanFromContext(callCtx); span != nil {
			span.SetAttributes(observability.Int(observability.AttrHTTPStatusCode, statusErr.StatusCode))
		}
		g.observer.Warn(g.ctx, "chat generate upstream error",
			observability.String(observability.AttrLLMVendor, d.vendor.Name()),
			observability.Int(observability.AttrHTTPStatusCode, statusErr.StatusCode),
		)
		g.emitter.SetRPCTerminatingIssue(particle.IssueDispatchFetch, issue.Error(), particle.EndIssueDialect)
		return
	}
	g.transportFailed(callCtx, &ai.TransportFailure{Op: ai.TransportFetch, Err: err})
}

// transportFailed ends the generation after a transport error. Cancellation
// of the caller context is a client abort, a deadline is a client-read issue.
func (g *generation) transportFailed(callCtx context.Context, failure *ai.TransportFailure) {
	switch {
	case errors.Is(g.ctx.Err(), context.Canceled):
		g.observer.Info(g.ctx, "chat generate aborted by client")
		g.emitter.SetClientAborted()
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		g.observer.Warn(g.ctx, "chat generate timed out", observability.Error(failure))
		g.emitter.SetRPCTerminatingIssue(particle.IssueClientRead, "request timed out: "+failure.Error(), particle.EndIssueRPC)
	case failure.Op == ai.TransportFetch:
		g.observer.Warn(g.ctx, "chat generate dispatch failed", observability.Error(failure))
		g.emitter.SetRPCTerminatingIssue(particle.IssueDispatchFetch, failure.Error(), particle.EndIssueRPC)
	default:
		g.observer.Warn(g.ctx, "chat generate read failed", observability.Error(failure))
		g.emitter.SetRPCTerminatingIssue(particle.IssueClientRead, failure.Error(), particle.EndIssueRPC)
	}
}

func (g *generation) parseFailed(d *prepared, eventName string, err error) {
	g.observer.Warn(g.ctx, "chat generate parse failed",
		observability.String(observability.AttrLLMVendor, d.vendor.Name()),
		observability.String(observability.AttrLLMEventName, eventName),
		observability.String(observability.AttrErrorType, parseErrorType(err)),
		observability.Error(err),
	)
	g.emitter.SetRPCTerminatingIssue(particle.IssueDispatchParse, err.Error(), particle.EndIssueDialect)
}

func parseErrorType(err error) string {
	if ai.IsProtocolViolation(err) {
		return "protocol_violation"
	}
	return "parse"
}

// complete terminates the emitter if nothing else did, finalizes and sends
// the done notification.
func (g *generation) complete() reassembler.Accumulator {
	g.emitter.Finish()
	g.pump()
	g.re.Finalize(g.ctx)

	acc := g.re.Snapshot()
	gen := acc.Generator
	switch gen.EndReason {
	case particle.EndIssueDialect, particle.EndIssueRPC:
		g.span.SetStatus(observability.StatusError, string(gen.EndReason))
	default:
		g.span.SetStatus(observability.StatusOK, "")
	}
	g.observer.Debug(g.ctx, "chat generate done",
		observability.String(observability.AttrLLMEndReason, string(gen.EndReason)),
		observability.String(observability.AttrLLMStopReason, string(gen.TokenStopReason)),
		observability.Int(observability.AttrFragmentsCount, len(acc.Fragments)),
	)
	g.onUpdate(acc, true)
	return acc
}

// upstreamMessage pulls the message out of the usual error envelopes,
// falling back to the raw body.
func upstreamMessage(body string) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err == nil {
		var nested struct {
			Message string `json:"message"`
			Status  string `json:"status"`
			Type    string `json:"type"`
		}
		var flat string
		switch {
		case json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "":
			if kind := cmp.Or(nested.Status, nested.Type); kind != "" {
				return kind + ": " + nested.Message
			}
			return nested.Message
		case json.Unmarshal(envelope.Error, &flat) == nil && flat != "":
			return flat
		case envelope.Message != "":
			return envelope.Message
		}
	}
	if text := strings.TrimSpace(body); text != "" {
		return utils.TruncateString(text, 1000)
	}
	return "empty response body"
}
