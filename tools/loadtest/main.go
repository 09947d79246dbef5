// Command loadtest hammers the risk analysis endpoint with concurrent clients and
// reports status counts and latency percentiles. Useful to watch the upstream
// cache and single-flight at work on /metrics.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

func main() {
	var (
		baseURL      string
		assetsFlag   string
		days         int
		workers      int
		testDuration time.Duration
		rampUp       time.Duration
	)

	flag.StringVar(&baseURL, "url", "http://localhost:5000", "riskd base URL")
	flag.StringVar(&assetsFlag, "assets", "bitcoin,ethereum,solana,tether", "comma separated asset ids, requested round robin")
	flag.IntVar(&days, "days", 30, "analysis window")
	flag.IntVar(&workers, "workers", 50, "number of concurrent clients")
	flag.DurationVar(&testDuration, "dur", 30*time.Second, "test duration")
	flag.DurationVar(&rampUp, "ramp", 0, "ramp-up duration (spread worker starts across this window)")
	flag.Parse()

	if workers <= 0 {
		log.Fatalf("invalid workers: %d", workers)
	}
	assets := strings.Split(assetsFlag, ",")

	log.Printf("starting load: url=%s workers=%d duration=%s ramp=%s assets=%v", baseURL, workers, testDuration, rampUp, assets)

	client := &http.Client{
		Transport: &http.Transport{
			MaxConnsPerHost:     workers + 10,
			MaxIdleConns:        workers + 10,
			MaxIdleConnsPerHost: workers + 10,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
		Timeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, testDuration)
	defer cancel()

	var (
		requests  int64
		transport int64
		mu        sync.Mutex
		statuses  = make(map[int]int64)
		latencies []time.Duration
	)

	var interval time.Duration
	if rampUp > 0 {
		interval = rampUp / time.Duration(workers)
	}

	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		if i > 0 && interval > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(interval):
			}
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for n := id; ctx.Err() == nil; n++ {
				target := fmt.Sprintf("%s/api/riskanalysis/%s?days=%d", baseURL, assets[n%len(assets)], days)
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
				if err != nil {
					atomic.AddInt64(&transport, 1)
					return
				}

				began := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						atomic.AddInt64(&transport, 1)
					}
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				took := time.Since(began)

				atomic.AddInt64(&requests, 1)
				mu.Lock()
				statuses[resp.StatusCode]++
				latencies = append(latencies, took)
				mu.Unlock()
			}
		}(i)
	}

	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Printf("status: requests=%d transport_errs=%d elapsed=%s",
					atomic.LoadInt64(&requests),
					atomic.LoadInt64(&transport),
					time.Since(start).Truncate(time.Second),
				)
			}
		}
	}()

	wg.Wait()

	elapsed := time.Since(start)
	if elapsed == 0 {
		elapsed = time.Millisecond
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("done: requests=%d transport_errs=%d elapsed=%s req/s=%.2f p50=%s p95=%s p99=%s\n",
		requests,
		transport,
		elapsed.Truncate(time.Millisecond),
		float64(requests)/elapsed.Seconds(),
		percentile(latencies, 0.50),
		percentile(latencies, 0.95),
		percentile(latencies, 0.99),
	)

	codes := make([]int, 0, len(statuses))
	for code := range statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, statuses[code])
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(q*float64(len(sorted)-1))].Truncate(time.Microsecond)
}
