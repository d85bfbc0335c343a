package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	fuzzydirhash "github.com/mattkeenan/fuzzydirhash/pkg"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showHelp()
			return
		case "--version":
			fmt.Printf("fdhash %s\n", getVersionString())
			return
		}
	}

	opts := defineOptions()
	if err := opts.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fdhash: %v\n", err)
		showUsage()
		os.Exit(2)
	}

	fuzzydirhash.SetVerboseLevel(opts.GetInt("verbose"))
	if opts.GetString("debug") != "" {
		fuzzydirhash.SetDebugFlags(opts.GetString("debug"))
	}

	var err error
	switch {
	case opts.GetBool("compare"):
		err = runCompare(opts)
	case opts.GetString("match") != "":
		err = runMatch(opts)
	default:
		err = runHash(opts)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fdhash: %v\n", err)
		os.Exit(1)
	}
}

func defineOptions() *ParsedOptions {
	opts := NewParsedOptions()
	opts.DefineOption("compare", "c", OptionTypeBool, "", "compare two signatures given as arguments")
	opts.DefineOption("match", "m", OptionTypeString, "", "match input files against a signature list file")
	opts.DefineOption("threshold", "t", OptionTypeInt, strconv.Itoa(fuzzydirhash.DefaultMatchThreshold), "minimum score reported as a match")
	opts.DefineOption("recursive", "r", OptionTypeBool, "", "recurse into directories")
	opts.DefineOption("no-header", "", OptionTypeBool, "", "omit the signature list header line")
	opts.DefineOption("verbose", "v", OptionTypeInt, "0", "verbose level (-v N, or -vv/-vvv for level 2/3)")
	opts.DefineOption("debug", "", OptionTypeString, "", "comma-separated debug flags (scan,match,index)")
	return opts
}

// runCompare handles `fdhash -c SIG1 SIG2`
func runCompare(opts *ParsedOptions) error {
	args := opts.Args()
	if len(args) != 2 {
		return fmt.Errorf("compare mode needs exactly two signatures, got %d arguments", len(args))
	}

	score, err := fuzzydirhash.Compare(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Println(score)
	return nil
}

// runHash handles the default mode: hash the named files (stdin if none)
// and print an ssdeep-format signature list
func runHash(opts *ParsedOptions) error {
	records, err := hashInputs(opts)
	if err != nil {
		return err
	}
	if opts.GetBool("no-header") {
		for _, record := range records {
			fmt.Printf("%s,%s\n", record.Signature, strconv.Quote(record.Name))
		}
		return nil
	}
	return fuzzydirhash.WriteSigList(os.Stdout, records)
}

// runMatch handles `fdhash -m LIST FILES...`
func runMatch(opts *ParsedOptions) error {
	set := fuzzydirhash.NewMatchSet()
	if err := set.LoadSigFile(opts.GetString("match")); err != nil {
		return err
	}

	threshold := opts.GetInt("threshold")
	records, err := hashInputs(opts)
	if err != nil {
		return err
	}

	listName := opts.GetString("match")
	for _, record := range records {
		results, err := set.Match(record.Signature, threshold)
		if err != nil {
			return err
		}
		for _, result := range results {
			fmt.Printf("%s matches %s:%s (%d)\n", record.Name, listName, result.Name, result.Score)
		}
	}
	return nil
}

// hashInputs hashes the positional arguments (stdin if there are none) and
// returns one record per input. A file that fails to hash is reported and
// skipped; it only affects the exit status if nothing could be hashed.
func hashInputs(opts *ParsedOptions) ([]fuzzydirhash.SigRecord, error) {
	args := opts.Args()
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		sig, err := fuzzydirhash.Hash(data)
		if err != nil {
			return nil, err
		}
		return []fuzzydirhash.SigRecord{{Signature: sig, Name: "stdin"}}, nil
	}

	var records []fuzzydirhash.SigRecord
	failed := 0
	for _, arg := range args {
		paths, err := expandArg(arg, opts.GetBool("recursive"))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			sig, err := fuzzydirhash.HashFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "fdhash: %s: %v\n", path, err)
				failed++
				continue
			}
			records = append(records, fuzzydirhash.SigRecord{Signature: sig, Name: path})
		}
	}

	if len(records) == 0 && failed > 0 {
		return nil, fmt.Errorf("no input could be hashed")
	}
	return records, nil
}

// expandArg resolves one argument to the files it names. Directories are
// walked when recursive is set and skipped with a warning otherwise.
func expandArg(arg string, recursive bool) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{arg}, nil
	}
	if !recursive {
		fmt.Fprintf(os.Stderr, "fdhash: %s is a directory (use -r to recurse)\n", arg)
		return nil, nil
	}

	var paths []string
	err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", arg, err)
	}
	return paths, nil
}

func showUsage() {
	fmt.Fprintf(os.Stderr, "usage: fdhash [options] [FILES...]\n")
	fmt.Fprintf(os.Stderr, "       fdhash -c SIG1 SIG2\n")
	fmt.Fprintf(os.Stderr, "       fdhash -m LIST [options] FILES...\n")
	fmt.Fprintf(os.Stderr, "try 'fdhash --help' for details\n")
}

func showHelp() {
	opts := defineOptions()
	fmt.Printf("fdhash %s - fuzzy hash files and compare signatures\n\n", getVersionString())
	fmt.Printf("usage: fdhash [options] [FILES...]\n\n")
	fmt.Printf("With no files, fdhash hashes standard input. Output is an\n")
	fmt.Printf("ssdeep-format signature list.\n\n")
	fmt.Printf("options:\n%s\n", opts.FormatOptionsHelp())
	fmt.Printf("examples:\n")
	fmt.Printf("  fdhash -r /some/dir > known.sig\n")
	fmt.Printf("  fdhash -m known.sig -t 50 suspect.bin\n")
	fmt.Printf("  fdhash -c '3:aNRn:aNRn' '3:aNRn:aNRn'\n")
}
