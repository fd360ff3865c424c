package scanner

import (
	"context"
	"log/slog"
	"time"

	"github.com/maxvaer/rschunter/internal/config"
	"github.com/maxvaer/rschunter/internal/payload"
)

// Scanner runs the per-host detection flow. A Scanner is safe for
// concurrent use; it holds no per-host state.
type Scanner struct {
	req             *Requester
	payload         payload.Payload
	headers         ProbeHeaders
	detector        Detector
	followRedirects bool
	logger          *slog.Logger
	now             func() time.Time
}

// New builds a Scanner for the detection mode and HTTP settings in opts.
func New(opts *config.Options, logger *slog.Logger) (*Scanner, error) {
	logger = orDefault(logger)
	req, err := NewRequester(opts, NewThrottler(opts.RateLimit, logger), logger)
	if err != nil {
		return nil, err
	}

	p := payload.Build(opts)
	headers := DefaultProbeHeaders(p.ContentType)
	headers.Overlay(opts.Headers)

	return &Scanner{
		req:             req,
		payload:         p,
		headers:         headers,
		detector:        DetectorFor(opts.Mode()),
		followRedirects: opts.FollowRedirects,
		logger:          logger,
		now:             time.Now,
	}, nil
}

// Detector returns the detector selected for this run.
func (s *Scanner) Detector() Detector { return s.detector }

// Scan probes the host root and, when the root is clean, the same-origin
// redirect target. It always returns a result; failures are recorded in
// it rather than returned.
func (s *Scanner) Scan(ctx context.Context, host string) ScanResult {
	res := ScanResult{Host: host}

	base, err := NormalizeHost(host)
	if err != nil {
		res.fail(err)
		return s.finish(res)
	}

	root := base + "/"
	res.Request = requestTrace(root, s.headers, s.payload.Body)
	resp, err := s.req.Send(ctx, root, s.headers, s.payload.Body)
	if err != nil {
		res.fail(err)
		return s.finish(res)
	}
	s.record(&res, root, resp)

	if s.detector.Detect(resp) {
		res.conclude(Vulnerable)
		return s.finish(res)
	}
	if !s.followRedirects {
		res.conclude(NotVulnerable)
		return s.finish(res)
	}

	target := s.req.ResolveRedirects(ctx, root)
	if target == root {
		res.conclude(NotVulnerable)
		return s.finish(res)
	}

	resp, err = s.req.Send(ctx, target, s.headers, s.payload.Body)
	if err != nil {
		// The root answered cleanly; a failed redirect probe does not turn
		// that into an unknown verdict.
		s.logger.Debug("redirect probe failed, keeping root result",
			slog.String("host", host), slog.String("url", target), slog.String("error", err.Error()))
		res.conclude(NotVulnerable)
		return s.finish(res)
	}
	res.Request = requestTrace(target, s.headers, s.payload.Body)
	s.record(&res, target, resp)

	if s.detector.Detect(resp) {
		res.conclude(Vulnerable)
	} else {
		res.conclude(NotVulnerable)
	}
	return s.finish(res)
}

func (s *Scanner) record(res *ScanResult, probed string, resp *Response) {
	res.FinalURL = probed
	res.StatusCode = resp.StatusCode
	res.Response = responseTrace(resp)
}

func (s *Scanner) finish(res ScanResult) ScanResult {
	res.Timestamp = s.now().UTC()
	return res
}
