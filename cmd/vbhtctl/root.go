// Package main implements vbhtctl, a demo/benchmark CLI driving an
// in-process HashTable directly (there is no RPC server or persistence
// layer to dial into — the table lives and dies with this process,
// exactly like the library it exercises).
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kvengine/vbht/lib/vbht/engines/chained"
)

const version = "0.1.0"

var table *chained.HashTable

var rootCmd = &cobra.Command{
	Use:   "vbhtctl",
	Short: "demo and benchmark tool for the chained hash-table engine",
	Long: fmt.Sprintf(`vbhtctl (v%s)

Drives an in-process, chained, concurrent hash-table index directly.
Every invocation starts from an empty table; there is no persistence
or network boundary here, by design.`, version),
	PersistentPreRunE: setupTable,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("vbhtctl v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	key := "initial-size"
	rootCmd.PersistentFlags().Int(key, 47, wrapString("Initial bucket-vector size (used as given, not rounded to a prime)"))
	key = "num-locks"
	rootCmd.PersistentFlags().Int(key, 16, wrapString("Number of stripe mutexes guarding the bucket vector"))
	key = "seed"
	rootCmd.PersistentFlags().Int64(key, 0, wrapString("Hash seed (0 picks a random seed)"))

	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(delCmd)
	rootCmd.AddCommand(evictCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(visitCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.AddCommand(perfCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("vbht")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func setupTable(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	var opts []chained.Option
	if seed := viper.GetInt64("seed"); seed != 0 {
		opts = append(opts, chained.WithSeed(uint64(seed)))
	}

	table = chained.New(viper.GetInt("initial-size"), viper.GetInt("num-locks"), opts...)
	return nil
}

// wrapString wraps help text at a fixed width for flag descriptions.
func wrapString(text string) string {
	const wrap = 60
	var lines []string
	var line strings.Builder
	width := 0
	for _, word := range strings.Fields(text) {
		if width > 0 && width+1+len(word) > wrap {
			lines = append(lines, line.String())
			line.Reset()
			width = 0
		}
		if width > 0 {
			line.WriteString(" ")
			width++
		}
		line.WriteString(word)
		width += len(word)
	}
	if line.Len() > 0 {
		lines = append(lines, line.String())
	}
	return strings.Join(lines, "\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
