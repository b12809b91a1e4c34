package docintel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/go-autorest/autorest"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/docextract/constants"
	"github.com/joseph-ayodele/docextract/internal/common"
)

const (
	analyzePath             = "/formrecognizer/documentModels/{modelId}:analyze"
	operationLocationHeader = "Operation-Location"
)

// Client runs asynchronous analyze operations against the document
// intelligence REST API: submit, then poll Operation-Location until done.
type Client struct {
	endpoint     string
	apiVersion   string
	locale       string
	authorizer   *autorest.CognitiveServicesAuthorizer
	httpClient   *http.Client
	timeout      time.Duration
	pollInterval time.Duration
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker[*AnalyzeResult]
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport used for submit and poll calls.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.pollInterval = d
		}
	}
}

// WithTimeout bounds one whole analyze operation, submit and polls included.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithRateLimit caps submits at rpm requests per minute.
func WithRateLimit(rpm, burst int) Option {
	return func(cl *Client) {
		if rpm > 0 {
			if burst <= 0 {
				burst = 1
			}
			cl.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
		}
	}
}

// NewClient builds a Client from vendor settings. Endpoint and key are required.
func NewClient(cfg common.VendorConfig, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, common.NewConfigurationError("document analysis endpoint and API key are required", nil)
	}
	c := &Client{
		endpoint:     strings.TrimRight(cfg.Endpoint, "/"),
		apiVersion:   cfg.APIVersion,
		locale:       cfg.Locale,
		authorizer:   autorest.NewCognitiveServicesAuthorizer(cfg.APIKey),
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		timeout:      60 * time.Second,
		pollInterval: time.Second,
		logger:       slog.Default(),
	}
	if c.apiVersion == "" {
		c.apiVersion = "2023-07-31"
	}
	if c.locale == "" {
		c.locale = constants.DefaultLocale
	}
	if cfg.Timeout > 0 {
		c.timeout = cfg.Timeout
	}
	if cfg.PollInterval > 0 {
		c.pollInterval = cfg.PollInterval
	}
	WithRateLimit(cfg.RequestsPerMinute, cfg.Burst)(c)

	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 10
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	logger := c.logger
	c.breaker = gobreaker.NewCircuitBreaker[*AnalyzeResult](gobreaker.Settings{
		Name:    "docintel",
		Timeout: cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Rejections caused by the request itself say nothing about vendor health.
		IsSuccessful: func(err error) bool {
			return err == nil || !common.IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("docintel.breaker.state", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

// Analyze submits data to modelID and waits for the result.
func (c *Client) Analyze(ctx context.Context, modelID string, data []byte) (*AnalyzeResult, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, common.NewTransientError("rate limit wait", err)
		}
	}

	res, err := c.breaker.Execute(func() (*AnalyzeResult, error) {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return c.analyze(ctx, modelID, data)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, common.NewTransientError("document analysis circuit open", err)
	}
	return res, err
}

func (c *Client) analyze(ctx context.Context, modelID string, data []byte) (*AnalyzeResult, error) {
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	start := time.Now()

	opLocation, err := c.submit(ctx, reqID, modelID, data)
	if err != nil {
		return nil, err
	}

	res, err := c.poll(ctx, reqID, opLocation)
	if err != nil {
		c.logger.Error("docintel.analyze.error", "req_id", reqID, "model", modelID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	c.logger.Info("docintel.analyze.done",
		"req_id", reqID,
		"model", modelID,
		"pages", len(res.Pages),
		"tables", len(res.Tables),
		"documents", len(res.Documents),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (c *Client) submit(ctx context.Context, reqID, modelID string, data []byte) (string, error) {
	body := data
	req, err := autorest.Prepare((&http.Request{}).WithContext(ctx),
		autorest.AsPost(),
		autorest.WithBaseURL(c.endpoint),
		autorest.WithPathParameters(analyzePath, map[string]interface{}{"modelId": modelID}),
		autorest.WithQueryParameters(map[string]interface{}{
			"api-version": c.apiVersion,
			"locale":      c.locale,
		}),
		autorest.AsOctetStream(),
		autorest.WithBytes(&body),
		c.authorizer.WithAuthorization(),
	)
	if err != nil {
		return "", common.NewConfigurationError("build analyze request", err)
	}

	c.logger.Info("docintel.http.request",
		"req_id", reqID,
		"file", common.FileNameFromContext(ctx),
		"model", modelID,
		"content_length", len(data),
	)
	start := time.Now()

	resp, err := autorest.SendWithSender(c.httpClient, req)
	if err != nil {
		c.logger.Error("docintel.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", classify(err)
	}
	c.logger.Info("docintel.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if err := autorest.Respond(resp,
		autorest.WithErrorUnlessStatusCode(http.StatusAccepted),
		autorest.ByClosing(),
	); err != nil {
		return "", classify(err)
	}

	opLocation := resp.Header.Get(operationLocationHeader)
	if opLocation == "" {
		return "", common.NewTransientError("analyze response carried no "+operationLocationHeader, nil)
	}
	return opLocation, nil
}

func (c *Client) poll(ctx context.Context, reqID, opLocation string) (*AnalyzeResult, error) {
	for attempt := 1; ; attempt++ {
		op, raw, err := c.getOperation(ctx, opLocation)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("docintel.poll", "req_id", reqID, "attempt", attempt, "status", op.Status)

		switch op.Status {
		case StatusSucceeded:
			res := op.AnalyzeResult
			if res == nil {
				res = &AnalyzeResult{}
			}
			res.Raw = raw
			return res, nil
		case StatusFailed:
			return nil, operationFailure(op.Error)
		}

		t := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, common.NewTransientError("analyze operation did not finish", ctx.Err())
		case <-t.C:
		}
	}
}

func (c *Client) getOperation(ctx context.Context, opLocation string) (*operation, map[string]any, error) {
	req, err := autorest.Prepare((&http.Request{}).WithContext(ctx),
		autorest.AsGet(),
		autorest.WithBaseURL(opLocation),
		c.authorizer.WithAuthorization(),
	)
	if err != nil {
		return nil, nil, common.NewTransientError("build poll request", err)
	}
	resp, err := autorest.SendWithSender(c.httpClient, req)
	if err != nil {
		return nil, nil, classify(err)
	}

	var body json.RawMessage
	if err := autorest.Respond(resp,
		autorest.WithErrorUnlessStatusCode(http.StatusOK),
		autorest.ByUnmarshallingJSON(&body),
		autorest.ByClosing(),
	); err != nil {
		return nil, nil, classify(err)
	}

	if err := ValidateEnvelope(body); err != nil {
		return nil, nil, common.NewTransientError("unexpected analyze envelope", err)
	}
	var op operation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, nil, common.NewTransientError("decode analyze envelope", err)
	}
	var envelope struct {
		AnalyzeResult map[string]any `json:"analyzeResult"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, nil, common.NewTransientError("decode analyze envelope", err)
	}
	return &op, envelope.AnalyzeResult, nil
}

// classify maps transport and status failures onto coded errors.
func classify(err error) error {
	var de autorest.DetailedError
	if errors.As(err, &de) {
		code, _ := de.StatusCode.(int)
		if code == 0 && de.Response != nil {
			code = de.Response.StatusCode
		}
		if code > 0 {
			appErr := common.ClassifyStatus(code, err)
			if de.Response != nil {
				appErr.RetryAfter = autorest.GetRetryAfter(de.Response, 0)
			}
			return appErr
		}
	}
	return common.NewTransientError("document analysis request failed", err)
}

func operationFailure(e *operationError) error {
	if e == nil {
		return common.NewTransientError("analyze operation failed", nil)
	}
	cause := fmt.Errorf("%s: %s", e.Code, e.Message)
	if strings.HasPrefix(e.Code, "Invalid") {
		return common.ClassifyStatus(http.StatusBadRequest, cause)
	}
	return common.NewTransientError("analyze operation failed", cause)
}
