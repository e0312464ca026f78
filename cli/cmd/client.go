package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pithecene-io/smithyrt/adapter"
	"github.com/pithecene-io/smithyrt/adapter/redis"
	"github.com/pithecene-io/smithyrt/adapter/webhook"
	"github.com/pithecene-io/smithyrt/auth"
	"github.com/pithecene-io/smithyrt/bag"
	"github.com/pithecene-io/smithyrt/capture"
	"github.com/pithecene-io/smithyrt/cli/config"
	"github.com/pithecene-io/smithyrt/cli/reader"
	"github.com/pithecene-io/smithyrt/clock"
	"github.com/pithecene-io/smithyrt/components"
	"github.com/pithecene-io/smithyrt/connector"
	"github.com/pithecene-io/smithyrt/connector/httpconn"
	"github.com/pithecene-io/smithyrt/endpoint"
	"github.com/pithecene-io/smithyrt/interceptor"
	"github.com/pithecene-io/smithyrt/log"
	"github.com/pithecene-io/smithyrt/metrics"
	"github.com/pithecene-io/smithyrt/orchestrator"
	"github.com/pithecene-io/smithyrt/retry"
	"github.com/pithecene-io/smithyrt/sdkerr"
	"github.com/pithecene-io/smithyrt/types"
)

// Outcomes reported by invoke.
const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

// eventStreamContentType marks responses decoded as event-stream messages.
const eventStreamContentType = "application/vnd.amazon.eventstream"

// InvokeResult is the rendered outcome of one invocation.
type InvokeResult struct {
	Service      string               `json:"service" yaml:"service"`
	Operation    string               `json:"operation" yaml:"operation"`
	InvocationID string               `json:"invocation_id" yaml:"invocation_id"`
	Outcome      string               `json:"outcome" yaml:"outcome"`
	StatusCode   int                  `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Attempts     int                  `json:"attempts" yaml:"attempts"`
	DurationMS   int64                `json:"duration_ms" yaml:"duration_ms"`
	ErrorKind    string               `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorCode    string               `json:"error_code,omitempty" yaml:"error_code,omitempty"`
	Error        string               `json:"error,omitempty" yaml:"error,omitempty"`
	ContentType  string               `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Body         string               `json:"body,omitempty" yaml:"body,omitempty"`
	Messages     []reader.MessageView `json:"messages,omitempty" yaml:"messages,omitempty"`
}

// httpOutput is the deserialized output of a successful response.
type httpOutput struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// invokeClient owns everything one invocation needs.
type invokeClient struct {
	choice     invokeChoice
	plugins    orchestrator.Plugins
	collector  *metrics.Collector
	retryStats func() retry.Stats
	recorder   *resultRecorder
	clock      clock.TimeSource
	logger     *log.Logger
	closers    []func() error
}

// newInvokeClient wires the connector, strategy, auth, capture and adapter
// for choice. The caller must Close the client.
func newInvokeClient(ctx context.Context, choice invokeChoice, logger *log.Logger) (*invokeClient, error) {
	return newInvokeClientWith(ctx, choice, logger, httpconn.New(httpconn.Config{}), clock.System{})
}

func newInvokeClientWith(ctx context.Context, choice invokeChoice, logger *log.Logger, conn connector.Connector, clk clock.Clock) (*invokeClient, error) {
	ic := &invokeClient{choice: choice, recorder: &resultRecorder{}, clock: clk, logger: logger}

	strategy, stats := buildRetryStrategy(choice.retry, clk, logger)
	ic.retryStats = stats

	var captureBackend string
	var store *capture.Store
	if choice.capture.backend != "" {
		var err error
		if store, err = buildCaptureStore(ctx, choice.capture); err != nil {
			return nil, fmt.Errorf("failed to create capture store: %w", err)
		}
		captureBackend = store.Backend()
	}
	ic.collector = metrics.NewCollector(choice.service, "http", captureBackend)

	builder := components.NewBuilder("smithyrt-cli").
		SetConnector(conn).
		SetEndpointResolver(&endpoint.Static{Endpoint: endpoint.Endpoint{
			URL:     choice.url,
			Headers: endpointHeaders(choice.headers),
		}}).
		SetRetryStrategy(strategy).
		SetTimeSource(clk).
		SetSleeper(clk).
		PushInterceptor(interceptor.NewInvocationID(nil)).
		PushInterceptor(retry.NewRequestInfo()).
		PushInterceptor(metrics.NewInterceptor(ic.collector)).
		PushInterceptor(ic.recorder)
	for _, c := range retry.DefaultClassifiers() {
		builder.PushRetryClassifier(c)
	}
	if err := applyAuth(builder, choice.authScheme, choice.authToken); err != nil {
		return nil, err
	}
	if store != nil {
		builder.PushInterceptor(capture.NewInterceptor(store,
			capture.WithClock(clk),
			capture.WithCollector(ic.collector),
			capture.WithLogger(logger),
		))
	}
	if choice.adapter.adapterType != "" {
		a, err := buildAdapter(choice.adapter)
		if err != nil {
			return nil, fmt.Errorf("failed to create adapter: %w", err)
		}
		ic.closers = append(ic.closers, a.Close)
		builder.PushInterceptor(adapter.NewInterceptor(a, clk, ic.collector, logger))
	}

	layer := bag.NewLayer("smithyrt-cli")
	bag.Put(layer, orchestrator.SerializerKey, orchestrator.Serializer(orchestrator.SerializerFunc(ic.serialize)))
	bag.Put(layer, orchestrator.DeserializerKey, orchestrator.Deserializer(orchestrator.DeserializerFunc(deserializeHTTP)))
	bag.Put(layer, orchestrator.TimeoutConfigKey, choice.timeouts)
	bag.Put(layer, orchestrator.LoggerKey, logger)
	if choice.endpointPrefix != "" {
		bag.Put(layer, endpoint.PrefixKey, choice.endpointPrefix)
	}

	ic.plugins = orchestrator.Plugins{
		Client: []orchestrator.RuntimePlugin{orchestrator.StaticPlugin{Layer: layer.Freeze(), Builder: builder}},
	}
	return ic, nil
}

// Close releases the adapter, if any.
func (ic *invokeClient) Close() error {
	var errs []error
	for _, fn := range ic.closers {
		errs = append(errs, fn())
	}
	return errors.Join(errs...)
}

// invoke runs the operation and summarizes it. Failures are reported in the
// result, never returned.
func (ic *invokeClient) invoke(ctx context.Context) *InvokeResult {
	start := ic.clock.Now()
	out, err := orchestrator.Invoke(ctx, ic.choice.service, ic.choice.operation, nil, ic.plugins)

	result := &InvokeResult{
		Service:      ic.choice.service,
		Operation:    ic.choice.operation,
		InvocationID: ic.recorder.invocationID,
		Attempts:     ic.recorder.attempts,
		DurationMS:   ic.clock.Now().Sub(start).Milliseconds(),
		Outcome:      outcomeSuccess,
	}

	if err != nil {
		result.Outcome = outcomeFailure
		result.ErrorKind = metrics.Category(err)
		result.ErrorCode = sdkerr.ErrorCode(err)
		result.Error = err.Error()
		if resp := sdkerr.RawResponse(err); resp != nil {
			body, lerr := resp.Body.Load()
			if lerr != nil {
				ic.logger.Warn("failed to read error response body", map[string]any{"error": lerr.Error()})
			}
			ic.fillResponse(result, resp.StatusCode, resp.Header, body)
		}
		return result
	}

	if o, ok := out.(*httpOutput); ok {
		ic.fillResponse(result, o.StatusCode, o.Header, o.Body)
	}
	return result
}

// fillResponse copies status and body into result, decoding event-stream
// bodies into messages.
func (ic *invokeClient) fillResponse(result *InvokeResult, status int, header http.Header, body []byte) {
	result.StatusCode = status
	result.ContentType = header.Get("Content-Type")
	if !strings.HasPrefix(result.ContentType, eventStreamContentType) {
		result.Body = string(body)
		return
	}
	msgs, err := reader.ReadMessages(bytes.NewReader(body))
	result.Messages = msgs
	ic.collector.AddMessagesDecoded(int64(len(msgs)))
	if err != nil {
		ic.collector.IncDecodeErrors()
		if result.Error == "" {
			result.Error = fmt.Sprintf("decode event stream: %v", err)
		}
	}
}

// serialize builds the request from the command line. Endpoint resolution
// fills in scheme and host.
func (ic *invokeClient) serialize(_ context.Context, _ any, _ *bag.Bag) (*types.Request, error) {
	req, err := types.NewRequest(ic.choice.method, ic.choice.path)
	if err != nil {
		return nil, fmt.Errorf("invalid --path: %w", err)
	}
	if len(ic.choice.body) > 0 {
		req.Body = types.BytesBody(ic.choice.body)
	}
	return req, nil
}

// deserializeHTTP returns the raw response on 2xx. Other statuses become
// modeled errors named by the x-amzn-errortype header or the status text.
func deserializeHTTP(resp *types.Response) (any, error) {
	body, err := resp.Body.Load()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.IsSuccess() {
		return &httpOutput{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
	}
	return nil, sdkerr.Operation(&sdkerr.GenericError{
		ErrorCode: errorCode(resp),
		Message:   strings.TrimSpace(string(body)),
	})
}

func errorCode(resp *types.Response) string {
	if t := resp.Header.Get("X-Amzn-Errortype"); t != "" {
		code, _, _ := strings.Cut(t, ":")
		return code
	}
	return strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "")
}

// endpointHeaders converts configured headers; endpoint headers replace
// request headers of the same name.
func endpointHeaders(headers map[string]string) http.Header {
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}
	return h
}

// buildRetryStrategy returns the configured strategy and a stats snapshot
// function for the metrics exporter.
func buildRetryStrategy(rc retryChoice, clk clock.TimeSource, logger *log.Logger) (retry.Strategy, func() retry.Stats) {
	if rc.mode == config.RetryModeNever {
		return retry.NeverStrategy{}, nil
	}

	opts := []retry.StandardOption{
		retry.WithMaxAttempts(rc.maxAttempts),
		retry.WithInitialBackoff(rc.initialBackoff),
		retry.WithMaxBackoff(rc.maxBackoff),
		retry.WithLogger(logger),
	}
	if rc.bucketEnabled {
		opts = append(opts, retry.WithTokenBucket(buildTokenBucket(rc.bucket, clk)))
	} else {
		opts = append(opts, retry.WithTokenBucket(nil))
	}
	s := retry.NewStandardStrategy(opts...)
	return s, s.Stats
}

func buildTokenBucket(tb config.TokenBucketConfig, clk clock.TimeSource) *retry.TokenBucket {
	opts := []retry.BucketOption{retry.WithBucketClock(clk)}
	if tb.Capacity > 0 {
		opts = append(opts, retry.WithCapacity(tb.Capacity))
	}
	if tb.RetryCost > 0 {
		opts = append(opts, retry.WithRetryCost(tb.RetryCost))
	}
	if tb.TimeoutRetryCost > 0 {
		opts = append(opts, retry.WithTimeoutRetryCost(tb.TimeoutRetryCost))
	}
	if tb.SuccessReward > 0 {
		opts = append(opts, retry.WithSuccessReward(tb.SuccessReward))
	}
	if tb.RefillRate > 0 {
		opts = append(opts, retry.WithRefillRate(tb.RefillRate))
	}
	return retry.NewTokenBucket(opts...)
}

// applyAuth registers the scheme named by scheme. NoAuth is always
// available as a fallback.
func applyAuth(b *components.Builder, scheme, token string) error {
	b.PushAuthScheme(auth.NoAuth{}).
		PushIdentityResolver(auth.NoAuthSchemeID, auth.NoAuthIdentityResolver())

	switch scheme {
	case "", config.AuthSchemeNone:
		b.SetAuthSchemeOptionResolver(auth.StaticOptionResolver{auth.NoAuthSchemeID})
	case config.AuthSchemeBearer:
		if token == "" {
			return errors.New("--auth-token is required for the bearer scheme")
		}
		b.PushAuthScheme(auth.Bearer{}).
			PushIdentityResolver(auth.BearerSchemeID, auth.StaticToken(token)).
			SetAuthSchemeOptionResolver(auth.StaticOptionResolver{auth.BearerSchemeID})
	default:
		return fmt.Errorf("unknown auth scheme %q", scheme)
	}
	return nil
}

func buildCaptureStore(ctx context.Context, cc captureChoice) (*capture.Store, error) {
	dataset := cc.dataset
	if dataset == "" {
		dataset = capture.DefaultDataset
	}
	switch cc.backend {
	case "fs":
		return capture.NewFSStore(dataset, cc.path)
	case "s3":
		bucket, prefix := capture.ParseS3Path(cc.path)
		return capture.NewS3Store(ctx, dataset, capture.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       cc.s3Region,
			Endpoint:     cc.s3Endpoint,
			UsePathStyle: cc.s3PathStyle,
		})
	case "memory":
		return capture.NewMemoryStore(dataset)
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cc.backend)
	}
}

func buildAdapter(ac adapterChoice) (adapter.Adapter, error) {
	enc, err := adapter.ParseEncoding(ac.encoding)
	if err != nil {
		return nil, err
	}
	switch ac.adapterType {
	case "redis":
		return redis.New(redis.Config{
			URL:      ac.url,
			Channel:  ac.channel,
			Encoding: enc,
			Timeout:  ac.timeout,
			Retries:  ac.retries,
		})
	case "webhook":
		return webhook.New(webhook.Config{
			URL:      ac.url,
			Headers:  ac.headers,
			Encoding: enc,
			Timeout:  ac.timeout,
			Retries:  ac.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.adapterType)
	}
}

// serveMetrics serves e on addr until the returned stop function is called.
func serveMetrics(addr string, e *metrics.Exporter, logger *log.Logger) (stop func(), err error) {
	h, err := metrics.Handler(e)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", map[string]any{"error": err.Error()})
		}
	}()
	logger.Info("serving metrics", map[string]any{"addr": ln.Addr().String()})

	return func() {
		ctx, cancel := withShutdownTimeout()
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// resultRecorder captures the invocation id and attempt count for the
// rendered result.
type resultRecorder struct {
	interceptor.Base
	invocationID string
	attempts     int
}

// Name implements interceptor.Interceptor.
func (*resultRecorder) Name() string { return "ResultRecorder" }

// ReadAfterExecution reads the final invocation state.
func (r *resultRecorder) ReadAfterExecution(_ context.Context, _ *interceptor.Context, b *bag.Bag) error {
	r.invocationID, _ = bag.Load(b, interceptor.InvocationIDKey)
	r.attempts, _ = bag.Load(b, retry.RequestAttemptsKey)
	return nil
}

var _ interceptor.Interceptor = (*resultRecorder)(nil)
