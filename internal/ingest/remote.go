package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RecordingReference locates a remotely stored recording and carries the
// credential pair required to fetch it. Used exactly once per run, never
// persisted.
type RecordingReference struct {
	URL      string
	Username string
	Password string
}

// FetchPolicy bounds the remote fetch. The provider may still be finalizing
// the recording when the webhook fires, so the first attempt is delayed and
// not-ready responses are retried with exponential backoff up to MaxRetries.
type FetchPolicy struct {
	InitialDelay  time.Duration
	RetryInterval time.Duration // first backoff interval; zero = 500ms
	MaxRetries    int
	Timeout       time.Duration // per-attempt HTTP timeout
}

// RemoteSource fetches a recording from the telephony provider over HTTP
// with basic auth.
type RemoteSource struct {
	ref    RecordingReference
	policy FetchPolicy
	client *http.Client
	log    zerolog.Logger
}

// NewRemoteSource creates a source that pulls the referenced recording.
func NewRemoteSource(ref RecordingReference, policy FetchPolicy, log zerolog.Logger) *RemoteSource {
	timeout := policy.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RemoteSource{
		ref:    ref,
		policy: policy,
		client: &http.Client{Timeout: timeout},
		log:    log.With().Str("component", "remote_source").Logger(),
	}
}

func (s *RemoteSource) Resolve(ctx context.Context) (*AudioBlob, error) {
	if s.ref.URL == "" {
		return nil, ErrEmptyInput
	}

	// Give the provider time to finalize the recording before the first fetch.
	if s.policy.InitialDelay > 0 {
		s.log.Debug().Dur("delay", s.policy.InitialDelay).Msg("waiting before first fetch attempt")
		select {
		case <-time.After(s.policy.InitialDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrTransport, ctx.Err())
		}
	}

	bo := backoff.NewExponentialBackOff()
	if s.policy.RetryInterval > 0 {
		bo.InitialInterval = s.policy.RetryInterval
	} else {
		bo.InitialInterval = 500 * time.Millisecond
	}
	bo.MaxElapsedTime = 0 // bounded by MaxRetries and ctx, not wall clock

	var blob *AudioBlob
	attempt := 0
	op := func() error {
		attempt++
		b, err := s.fetchOnce(ctx)
		if err != nil {
			s.log.Warn().Err(err).Int("attempt", attempt).Str("url", s.ref.URL).Msg("recording fetch failed")
			return err
		}
		blob = b
		return nil
	}

	retries := backoff.WithMaxRetries(bo, uint64(s.policy.MaxRetries))
	if err := backoff.Retry(op, backoff.WithContext(retries, ctx)); err != nil {
		return nil, err
	}

	s.log.Debug().Int("attempts", attempt).Int("bytes", len(blob.Data)).Msg("recording fetched")
	return blob, nil
}

// fetchOnce performs a single authenticated GET. Errors are returned already
// tagged: 401/403 are permanent, not-ready 4xx map to ErrRecordingUnavailable,
// everything else to ErrTransport — both retryable within the budget.
func (s *RemoteSource) fetchOnce(ctx context.Context) (*AudioBlob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.ref.URL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrTransport, err))
	}
	if s.ref.Username != "" || s.ref.Password != "" {
		req.SetBasicAuth(s.ref.Username, s.ref.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnauthorized, resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Recording not finalized yet — retry within the budget.
		return nil, fmt.Errorf("%w: status %d", ErrRecordingUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if len(data) == 0 {
		return nil, backoff.Permanent(ErrEmptyInput)
	}

	return &AudioBlob{Data: data, Ext: extFromURL(s.ref.URL)}, nil
}

func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "wav"
	}
	return extOrDefault(u.Path)
}
