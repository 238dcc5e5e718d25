package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kvengine/vbht/lib/vbht"
)

var (
	perfKeyPrefix  = "__bench"
	perfNumThreads = 10
	perfKeySpread  = 1000
	perfSkip       = make([]string, 0)
)

var perfCmd = &cobra.Command{
	Use:     "perf",
	Short:   "Benchmarks the in-process hash table's set/get/delete/evict throughput",
	RunE:    runPerf,
	PreRunE: processPerfConfig,
}

func init() {
	key := "skip"
	perfCmd.Flags().String(key, "", wrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfCmd.Flags().Int(key, 10, wrapString("Number of goroutines to use for the benchmark"))
	key = "keys"
	perfCmd.Flags().Int(key, 1000, wrapString("How many different keys to spread load across"))
	key = "csv"
	perfCmd.Flags().String(key, "", wrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	perfKeySpread = viper.GetInt("keys")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("benchmarking in-process chained hash table")
	fmt.Printf("initialSize=%d numLocks=%d threads=%d keys=%d\n\n",
		table.Size(), table.NumLocks(), perfNumThreads, perfKeySpread)

	results := make(map[string]testing.BenchmarkResult)

	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}
		getKey := keyIndexer("set")
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := getKey(counter)
				bl := table.LockBucket(k)
				_, _ = table.Set(bl, vbht.Item{Key: k, Value: []byte("test")})
				bl.Unlock()
				counter++
			}
		})
	})
	results["set"] = setResult
	printResult("set", setResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}
		getKey := keyIndexer("get")
		seedKeys(getKey)
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := getKey(counter)
				bl := table.LockBucket(k)
				table.FindForRead(bl, k, false)
				bl.Unlock()
				counter++
			}
		})
	})
	results["get"] = getResult
	printResult("get", getResult)

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}
		getKey := keyIndexer("delete")
		seedKeys(getKey)
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := getKey(counter)
				bl := table.LockBucket(k)
				if sv := table.FindOnlyCommitted(bl, k); sv != nil {
					_ = table.UnlockedSoftDelete(bl, sv, false, vbht.DeleteSourceExplicit)
				}
				bl.Unlock()
				counter++
			}
		})
	})
	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	evictResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("evict") {
			return
		}
		getKey := keyIndexer("evict")
		seedKeys(getKey)
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				k := getKey(counter)
				bl := table.LockBucket(k)
				if sv := table.FindOnlyCommitted(bl, k); sv != nil {
					table.Eject(bl, sv, vbht.EvictionPolicyValue)
				}
				bl.Unlock()
				counter++
			}
		})
	})
	results["evict"] = evictResult
	printResult("evict", evictResult)

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nexporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("export complete")
	}

	return nil
}

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// keyIndexer builds a deterministic, prefix-scoped [0, perfKeySpread)
// key space and returns a function mapping a benchmark iteration
// counter onto one of those keys (with wraparound).
func keyIndexer(prefix string) func(int) vbht.Key {
	keys := make([]vbht.Key, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = keyFor(fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i))
	}
	return func(i int) vbht.Key { return keys[i%perfKeySpread] }
}

func seedKeys(getKey func(int) vbht.Key) {
	for i := 0; i < perfKeySpread; i++ {
		k := getKey(i)
		bl := table.LockBucket(k)
		_, _ = table.Set(bl, vbht.Item{Key: k, Value: []byte("test")})
		bl.Unlock()
	}
}

func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}
	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "Threads", "Keys"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for test, result := range results {
		var nsPerOp, opsPerSec float64
		skipped := "false"
		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
