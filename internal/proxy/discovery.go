package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"go.uber.org/zap"
)

const (
	defaultProbeURL       = "https://www.gstatic.com/generate_204"
	plainProbeURL         = "http://www.gstatic.com/generate_204"
	maxProbesPerDiscovery = 8
	offeredCapacity       = 4096
	offeredFalsePositive  = 0.001
	maxListBytes          = 1 << 20
)

// ErrNoProxy is returned when discovery found no usable proxy.
var ErrNoProxy = errors.New("no usable proxy discovered")

// ListDiscoverer fetches a public proxy list and probes candidates until one works.
//
// Candidates already offered are remembered in a bloom filter so the same dead proxies are
// not probed on every call; the filter is reset once it is saturated.
type ListDiscoverer struct {
	client   *http.Client
	listURL  string
	probeURL string
	timeout  time.Duration
	shuffle  func(addrs []string)

	offered      *bloom.BloomFilter
	offeredCount int
	mutex        sync.Mutex

	logger *zap.Logger
}

// DiscovererOption customizes a ListDiscoverer.
type DiscovererOption func(*ListDiscoverer)

// WithProbeURL replaces the URL fetched through each candidate.
func WithProbeURL(u string) DiscovererOption {
	return func(d *ListDiscoverer) {
		d.probeURL = u
	}
}

// WithShuffle replaces the random candidate ordering.
func WithShuffle(fn func(addrs []string)) DiscovererOption {
	return func(d *ListDiscoverer) {
		d.shuffle = fn
	}
}

// NewListDiscoverer creates a discoverer over listURL. With requireHTTPS candidates must tunnel TLS.
func NewListDiscoverer(listURL string, timeout time.Duration, requireHTTPS bool, logger *zap.Logger, opts ...DiscovererOption) *ListDiscoverer {
	probe := plainProbeURL
	if requireHTTPS {
		probe = defaultProbeURL
	}

	d := &ListDiscoverer{
		client:   &http.Client{Timeout: timeout},
		listURL:  listURL,
		probeURL: probe,
		timeout:  timeout,
		shuffle: func(addrs []string) {
			rand.Shuffle(len(addrs), func(i, j int) { addrs[i], addrs[j] = addrs[j], addrs[i] })
		},
		offered: bloom.NewWithEstimates(offeredCapacity, offeredFalsePositive),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover returns the first candidate that answers the probe, as an http:// proxy URL.
func (d *ListDiscoverer) Discover(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	candidates, err := d.fetchList(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch proxy list: %w", err)
	}

	fresh := d.takeUnoffered(candidates, maxProbesPerDiscovery)
	for _, addr := range fresh {
		proxyURL := &url.URL{Scheme: "http", Host: addr}
		if err := d.probe(ctx, proxyURL); err != nil {
			d.logger.Debug("Proxy probe failed", zap.String("proxy", addr), zap.Error(err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		d.logger.Info("Proxy discovered", zap.String("proxy", addr))
		return proxyURL.String(), nil
	}

	return "", ErrNoProxy
}

func (d *ListDiscoverer) fetchList(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.listURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy list returned status %d", resp.StatusCode)
	}

	return parseProxyList(io.LimitReader(resp.Body, maxListBytes))
}

// parseProxyList reads one host:port per line, ignoring blanks, comments, and malformed entries.
func parseProxyList(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "http://")
		if _, _, err := net.SplitHostPort(line); err != nil {
			continue
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}

func (d *ListDiscoverer) takeUnoffered(candidates []string, limit int) []string {
	d.shuffle(candidates)

	d.mutex.Lock()
	defer d.mutex.Unlock()

	var fresh []string
	for _, addr := range candidates {
		if len(fresh) == limit {
			break
		}
		if d.offered.TestString(addr) {
			continue
		}
		d.offered.AddString(addr)
		d.offeredCount++
		fresh = append(fresh, addr)
	}

	if d.offeredCount >= offeredCapacity || (len(fresh) == 0 && len(candidates) > 0) {
		d.offered.ClearAll()
		d.offeredCount = 0
	}
	return fresh
}

func (d *ListDiscoverer) probe(ctx context.Context, proxyURL *url.URL) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.probeURL, nil)
	if err != nil {
		return err
	}

	client := probeClient(proxyURL)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}

func probeClient(proxyURL *url.URL) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyURL(proxyURL),
			DisableKeepAlives: true,
		},
	}
}
