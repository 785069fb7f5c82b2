package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bmrb-io/nmrstar/bmrb"
	"github.com/bmrb-io/nmrstar/star"
)

var rootCmd = &cobra.Command{
	Use:   "nmrstar",
	Short: "Read, query, validate and fetch NMR-STAR files",
	Long: `nmrstar works with NMR-STAR files, the deposition format of the
Biological Magnetic Resonance Data Bank. It lists saveframes and tags,
extracts chemical shifts and polymer sequences, validates entries
against the NMR-STAR dictionary, compares entries semantically, and
downloads entries from the public BMRB API.

Input files ending in .gz are decompressed transparently.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print progress information to stderr")
	rootCmd.PersistentFlags().String("schema", "", "Path to a local NMR-STAR dictionary CSV (default: download the current one)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("schema", rootCmd.PersistentFlags().Lookup("schema"))
}

func initConfig() {
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(".nmrstar")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("NMRSTAR")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// verbosef prints progress chatter to stderr when --verbose is set.
func verbosef(format string, args ...interface{}) {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// loadEntry parses the NMR-STAR file at path, decompressing gzip when
// the name ends in .gz.
func loadEntry(path string) (*star.Entry, error) {
	verbosef("[read] parsing %s", path)
	entry, err := star.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entry, nil
}

// loadSchema reads the dictionary named by --schema, or downloads the
// current one from the official dictionary repository.
func loadSchema(ctx context.Context) (*star.Schema, error) {
	if path := viper.GetString("schema"); path != "" {
		verbosef("[schema] loading %s", path)
		return star.LoadSchemaFile(path)
	}
	verbosef("[schema] downloading %s", bmrb.DefaultSchemaURL)
	return bmrb.NewClient().FetchSchema(ctx, "")
}
