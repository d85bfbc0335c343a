package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	fuzzydirhash "github.com/mattkeenan/fuzzydirhash/pkg"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		showHelp()
		return
	case "--version":
		fmt.Printf("fdhscan %s\n", getVersionString())
		return
	}

	command := os.Args[1]
	opts := defineOptions()
	if err := opts.Parse(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "fdhscan: %v\n", err)
		showUsage()
		os.Exit(2)
	}

	if opts.WasExplicitlySet("verbose") {
		fuzzydirhash.SetVerboseLevel(opts.GetInt("verbose"))
	}
	if opts.GetString("debug") != "" {
		fuzzydirhash.SetDebugFlags(opts.GetString("debug"))
	}

	fc, err := fuzzydirhash.NewFuzzyDirCache(opts.GetString("root"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "fdhscan: %v\n", err)
		os.Exit(1)
	}
	defer fc.Close()

	// Ctrl-C stops the scan between hash jobs; the index file is only
	// replaced by a completed update.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintf(os.Stderr, "fdhscan: interrupted, stopping scan\n")
		fc.Close()
	}()

	switch command {
	case "update":
		err = runUpdate(fc, opts)
	case "status":
		err = runStatus(fc)
	case "match":
		err = runScanMatch(fc, opts)
	case "lookup":
		err = runLookup(fc, opts)
	case "list":
		err = runList(fc)
	default:
		fmt.Fprintf(os.Stderr, "fdhscan: unknown command %q\n", command)
		showUsage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fdhscan: %v\n", err)
		os.Exit(1)
	}
}

func defineOptions() *ParsedOptions {
	opts := NewParsedOptions()
	opts.DefineOption("root", "C", OptionTypeString, ".", "root directory of the cache")
	opts.DefineOption("threshold", "t", OptionTypeInt, "", "minimum score reported as a match (default from config)")
	opts.DefineOption("verbose", "v", OptionTypeInt, "0", "verbose level (-v N, or -vv/-vvv for level 2/3)")
	opts.DefineOption("debug", "", OptionTypeString, "", "comma-separated debug flags (scan,match,index)")
	return opts
}

// runUpdate refreshes the index; extra arguments limit the scan to those
// paths relative to the root
func runUpdate(fc *fuzzydirhash.FuzzyDirCache, opts *ParsedOptions) error {
	before := fc.Len()
	if err := fc.Update(opts.Args()...); err != nil {
		return err
	}
	fmt.Printf("indexed %d files (%d before update)\n", fc.Len(), before)
	return nil
}

// runStatus reports tree changes against the index without hashing
func runStatus(fc *fuzzydirhash.FuzzyDirCache) error {
	result, err := fc.Status()
	if err != nil {
		return err
	}

	if !result.HasChanges() {
		fmt.Println("index is up to date")
		return nil
	}
	for _, path := range result.New {
		fmt.Printf("new:      %s\n", path)
	}
	for _, path := range result.Modified {
		fmt.Printf("modified: %s\n", path)
	}
	for _, path := range result.Deleted {
		fmt.Printf("deleted:  %s\n", path)
	}
	fmt.Printf("%d changes\n", result.TotalChanges())
	return nil
}

// runScanMatch matches every indexed signature against a signature list
func runScanMatch(fc *fuzzydirhash.FuzzyDirCache, opts *ParsedOptions) error {
	args := opts.Args()
	if len(args) != 1 {
		return fmt.Errorf("match needs exactly one signature list file")
	}

	set := fuzzydirhash.NewMatchSet()
	if err := set.LoadSigFile(args[0]); err != nil {
		return err
	}

	threshold := fc.MatchThreshold()
	if opts.WasExplicitlySet("threshold") {
		threshold = opts.GetInt("threshold")
	}

	matches, err := fc.MatchAgainst(set, threshold)
	if err != nil {
		return err
	}
	for _, match := range matches {
		for _, result := range match.Matches {
			fmt.Printf("%s matches %s:%s (%d)\n", match.RelPath, args[0], result.Name, result.Score)
		}
	}
	return nil
}

// runLookup prints the cached signature for one file
func runLookup(fc *fuzzydirhash.FuzzyDirCache, opts *ParsedOptions) error {
	args := opts.Args()
	if len(args) != 1 {
		return fmt.Errorf("lookup needs exactly one path relative to the root")
	}

	sig, ok := fc.Lookup(args[0])
	if !ok {
		return fmt.Errorf("%s is not in the index", args[0])
	}
	fmt.Println(sig)
	return nil
}

// runList writes the whole index as an ssdeep-format signature list
func runList(fc *fuzzydirhash.FuzzyDirCache) error {
	return fuzzydirhash.WriteSigList(os.Stdout, fc.Signatures())
}

func showUsage() {
	fmt.Fprintf(os.Stderr, "usage: fdhscan COMMAND [options] [args]\n")
	fmt.Fprintf(os.Stderr, "commands: update, status, match, lookup, list\n")
	fmt.Fprintf(os.Stderr, "try 'fdhscan --help' for details\n")
}

func showHelp() {
	opts := defineOptions()
	fmt.Printf("fdhscan %s - cached fuzzy hashing for directory trees\n\n", getVersionString())
	fmt.Printf("usage: fdhscan COMMAND [options] [args]\n\n")
	fmt.Printf("commands:\n")
	fmt.Printf("  update [PATHS...]   hash new and changed files, persist the index\n")
	fmt.Printf("  status              report changes without hashing\n")
	fmt.Printf("  match LISTFILE      match indexed signatures against a signature list\n")
	fmt.Printf("  lookup PATH         print the cached signature for one file\n")
	fmt.Printf("  list                write the index as a signature list\n\n")
	fmt.Printf("options:\n%s\n", opts.FormatOptionsHelp())
	fmt.Printf("examples:\n")
	fmt.Printf("  fdhscan update -C /data\n")
	fmt.Printf("  fdhscan match -C /data -t 75 known.sig\n")
}
