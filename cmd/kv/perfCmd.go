package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/bKV/cmd/util"
	"github.com/ValentinKolb/bKV/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for bKV servers",
		Long:    "Runs every scenario for a fixed duration with the configured number of threads and reports latency percentiles. Scenarios: set, set-large, get, get-missing, rm, burst, mixed.",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfDuration         = 5 * time.Second
	perfSkip             []string
)

// perfScenario is a single perf test. op is called in a loop by every thread.
type perfScenario struct {
	name  string
	setup func(ctx context.Context, keys []string) error
	op    func(ctx context.Context, thread, i int, keys []string) error
}

// perfResult holds the outcome of a scenario
type perfResult struct {
	name    string
	skipped bool
	elapsed time.Duration
	timer   metrics.Timer
	errors  metrics.Counter
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Scenarios to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the set-large scenario should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the scenarios"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 5*time.Second, util.WrapString("How long every scenario runs"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfDuration = viper.GetDuration("duration")
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func runPerf(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Println("Performance testing tool for bKV servers")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Threads: %d, Duration per scenario: %s\n\n", perfNumThreads, perfDuration)

	registry := metrics.NewRegistry()
	defer registry.UnregisterAll()

	var results []perfResult
	for _, scenario := range perfScenarios() {
		result := runScenario(ctx, registry, scenario)
		printResult(result)
		results = append(results, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %w", err)
		}
		fmt.Println("Export complete")
	}
	return nil
}

// perfScenarios returns all scenarios in the order they run
func perfScenarios() []perfScenario {
	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	fill := func(ctx context.Context, keys []string) error {
		for _, k := range keys {
			if err := rpcDB.Set(ctx, k, "test"); err != nil {
				return err
			}
		}
		return nil
	}

	return []perfScenario{
		{
			name: "set",
			op: func(ctx context.Context, _, i int, keys []string) error {
				return rpcDB.Set(ctx, keys[i%len(keys)], strconv.Itoa(i))
			},
		},
		{
			name: "set-large",
			op: func(ctx context.Context, _, i int, keys []string) error {
				return rpcDB.Set(ctx, keys[i%len(keys)], largeValue)
			},
		},
		{
			name:  "get",
			setup: fill,
			op: func(ctx context.Context, _, i int, keys []string) error {
				_, _, err := rpcDB.Get(ctx, keys[i%len(keys)])
				return err
			},
		},
		{
			name: "get-missing",
			op: func(ctx context.Context, _, i int, keys []string) error {
				_, _, err := rpcDB.Get(ctx, keys[i%len(keys)]+"-missing")
				return err
			},
		},
		{
			name:  "rm",
			setup: fill,
			op: func(ctx context.Context, _, i int, keys []string) error {
				return rpcDB.Delete(ctx, keys[i%len(keys)])
			},
		},
		{
			// every thread types into its own key, like an editor saving on every keystroke
			name: "burst",
			op: func(ctx context.Context, thread, i int, keys []string) error {
				return rpcDB.Set(ctx, keys[thread%len(keys)], strings.Repeat("a", i%512))
			},
		},
		{
			name:  "mixed",
			setup: fill,
			op: func(ctx context.Context, _, i int, keys []string) error {
				key := keys[i%len(keys)]
				switch i % 3 {
				case 0:
					return rpcDB.Set(ctx, key, "test")
				case 1:
					_, _, err := rpcDB.Get(ctx, key)
					return err
				default:
					return rpcDB.Delete(ctx, key)
				}
			},
		},
	}
}

// runScenario runs one scenario for perfDuration on perfNumThreads threads and removes its keys afterwards
func runScenario(ctx context.Context, registry metrics.Registry, scenario perfScenario) perfResult {
	result := perfResult{
		name:   scenario.name,
		timer:  metrics.GetOrRegisterTimer(scenario.name+".latency", registry),
		errors: metrics.GetOrRegisterCounter(scenario.name+".errors", registry),
	}
	if slices.Contains(perfSkip, scenario.name) {
		result.skipped = true
		return result
	}

	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, scenario.name, i)
	}
	defer func() {
		for _, k := range keys {
			_ = rpcDB.Delete(ctx, k)
		}
	}()

	if scenario.setup != nil {
		if err := scenario.setup(ctx, keys); err != nil {
			fmt.Printf("(%s) - setup failed: %v\n", scenario.name, err)
			result.skipped = true
			return result
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, perfDuration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	for thread := 0; thread < perfNumThreads; thread++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			for i := thread; runCtx.Err() == nil; i += perfNumThreads {
				opStart := time.Now()
				// the op itself runs on the parent ctx so the deadline does not count as error
				err := scenario.op(ctx, thread, i, keys)
				result.timer.UpdateSince(opStart)
				if err != nil {
					result.errors.Inc(1)
				}
			}
		}(thread)
	}
	wg.Wait()
	result.elapsed = time.Since(start)
	return result
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

var percentiles = []float64{0.5, 0.95, 0.99}

// opsPerSec is the throughput of a finished scenario
func (r perfResult) opsPerSec() float64 {
	if r.elapsed <= 0 {
		return 0
	}
	return float64(r.timer.Count()) / r.elapsed.Seconds()
}

// printResult prints the result of a scenario in a formatted way
func printResult(r perfResult) {
	if r.skipped {
		fmt.Printf("%-14sskipped\n", r.name)
		return
	}
	p := r.timer.Percentiles(percentiles)
	fmt.Printf("%-14s%8.0f ops/sec  p50 %-10s p95 %-10s p99 %-10s max %-10s errors %d\n",
		r.name, r.opsPerSec(),
		time.Duration(p[0]), time.Duration(p[1]), time.Duration(p[2]), time.Duration(r.timer.Max()),
		r.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Test", "Ops", "OpsPerSec", "P50Ns", "P95Ns", "P99Ns", "MaxNs", "Errors", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ShardID", "Serializer", "Threads", "DurationSec", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range results {
		p := r.timer.Percentiles(percentiles)
		row := []string{
			r.name,
			strconv.FormatInt(r.timer.Count(), 10),
			fmt.Sprintf("%.0f", r.opsPerSec()),
			fmt.Sprintf("%.0f", p[0]),
			fmt.Sprintf("%.0f", p[1]),
			fmt.Sprintf("%.0f", p[2]),
			strconv.FormatInt(r.timer.Max(), 10),
			strconv.FormatInt(r.errors.Count(), 10),
			strconv.FormatBool(r.skipped),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetShardID(), 10),
			viper.GetString("serializer"),
			strconv.Itoa(perfNumThreads),
			fmt.Sprintf("%.0f", perfDuration.Seconds()),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", r.name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
