package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"golang.org/x/sync/errgroup"
)

const unknownBackend = "(unknown)"

type options struct {
	URL         string
	Method      string
	Concurrency int
	Requests    int
	Keys        int
}

func (o options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.URL, validation.Required, is.URL),
		validation.Field(&o.Method, validation.Required),
		validation.Field(&o.Concurrency, validation.Required, validation.Min(1)),
		validation.Field(&o.Requests, validation.Required, validation.Min(1)),
		validation.Field(&o.Keys, validation.Required, validation.Min(1)),
	)
}

// latencies reports percentiles in milliseconds.
type latencies struct {
	Samples int     `json:"samples"`
	Min     float64 `json:"min_ms"`
	Avg     float64 `json:"avg_ms"`
	Max     float64 `json:"max_ms"`
	P50     float64 `json:"p50_ms"`
	P90     float64 `json:"p90_ms"`
	P99     float64 `json:"p99_ms"`
}

type backendReport struct {
	Total     int       `json:"total"`
	Success   int       `json:"success"`
	Failure   int       `json:"failure"`
	Latencies latencies `json:"latencies"`

	samples []time.Duration
}

type report struct {
	Target      string                    `json:"target"`
	Requests    int                       `json:"requests"`
	Concurrency int                       `json:"concurrency"`
	Success     int                       `json:"success"`
	Failure     int                       `json:"failure"`
	Duration    time.Duration             `json:"duration_ns"`
	Throughput  float64                   `json:"throughput_rps"`
	StatusCodes map[int]int               `json:"status_codes"`
	Backends    map[string]*backendReport `json:"backends"`
	Latencies   latencies                 `json:"latencies"`

	samples []time.Duration
}

type result struct {
	backend  string
	status   int
	duration time.Duration
	err      error
}

// run fires opts.Requests requests with at most opts.Concurrency in flight.
// Transport errors count as failures. run only fails on bad options or ctx
// cancellation.
func run(ctx context.Context, client *http.Client, opts options) (*report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	rep := &report{
		Target:      opts.URL,
		Requests:    opts.Requests,
		Concurrency: opts.Concurrency,
		StatusCodes: make(map[int]int),
		Backends:    make(map[string]*backendReport),
	}

	var mutex sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	start := time.Now()
	for i := 0; i < opts.Requests; i++ {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			res := send(gctx, client, opts, i)
			if errors.Is(res.err, context.Canceled) {
				return res.err
			}

			mutex.Lock()
			rep.add(res)
			mutex.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Duration = time.Since(start)
	rep.Throughput = float64(opts.Requests) / rep.Duration.Seconds()
	rep.finish()
	return rep, nil
}

func send(ctx context.Context, client *http.Client, opts options, idx int) result {
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, nil)
	if err != nil {
		return result{err: err}
	}
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.1.%d.%d", (idx%opts.Keys)/250, (idx%opts.Keys)%250+1))

	start := time.Now()
	resp, err := client.Do(req)
	dur := time.Since(start)
	if err != nil {
		return result{duration: dur, err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	backend := resp.Header.Get("X-Backend-Server")
	if backend == "" {
		backend = unknownBackend
	}

	return result{backend: backend, status: resp.StatusCode, duration: dur}
}

func (r *report) add(res result) {
	r.samples = append(r.samples, res.duration)

	if res.err != nil {
		r.Failure++
		return
	}

	r.StatusCodes[res.status]++

	br, ok := r.Backends[res.backend]
	if !ok {
		br = &backendReport{}
		r.Backends[res.backend] = br
	}
	br.Total++
	br.samples = append(br.samples, res.duration)

	if res.status >= 200 && res.status < 300 {
		r.Success++
		br.Success++
	} else {
		r.Failure++
		br.Failure++
	}
}

func (r *report) finish() {
	r.Latencies = summarize(r.samples)
	for _, br := range r.Backends {
		br.Latencies = summarize(br.samples)
	}
}

func summarize(samples []time.Duration) latencies {
	if len(samples) == 0 {
		return latencies{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return latencies{
		Samples: len(sorted),
		Min:     ms(sorted[0]),
		Avg:     ms(sum / time.Duration(len(sorted))),
		Max:     ms(sorted[len(sorted)-1]),
		P50:     ms(percentile(sorted, 0.50)),
		P90:     ms(percentile(sorted, 0.90)),
		P99:     ms(percentile(sorted, 0.99)),
	}
}

// percentile expects sorted to be non-empty and ascending.
func percentile(sorted []time.Duration, p float64) time.Duration {
	return sorted[int(float64(len(sorted)-1)*p)]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func (r *report) print(w io.Writer) {
	fmt.Fprintf(w, "Target: %s\n", r.Target)
	fmt.Fprintf(w, "Requests: %d  Concurrency: %d\n", r.Requests, r.Concurrency)
	fmt.Fprintf(w, "Success: %d  Failure: %d\n", r.Success, r.Failure)
	fmt.Fprintf(w, "Duration: %v  Throughput: %.2f req/s\n", r.Duration, r.Throughput)

	fmt.Fprintln(w, "\nStatus codes:")
	codes := make([]int, 0, len(r.StatusCodes))
	for c := range r.StatusCodes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	for _, c := range codes {
		fmt.Fprintf(w, "  %d -> %d\n", c, r.StatusCodes[c])
	}

	fmt.Fprintln(w, "\nBackends:")
	names := make([]string, 0, len(r.Backends))
	for n := range r.Backends {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		br := r.Backends[n]
		fmt.Fprintf(w, "  %s -> total=%d success=%d failure=%d p50=%.2fms p99=%.2fms\n",
			n, br.Total, br.Success, br.Failure, br.Latencies.P50, br.Latencies.P99)
	}

	l := r.Latencies
	fmt.Fprintf(w, "\nLatency: min=%.2fms avg=%.2fms max=%.2fms p50=%.2fms p90=%.2fms p99=%.2fms\n",
		l.Min, l.Avg, l.Max, l.P50, l.P90, l.P99)
}
