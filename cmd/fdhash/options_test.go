package main

import (
	"strings"
	"testing"
)

func testOptions() *ParsedOptions {
	opts := NewParsedOptions()
	opts.DefineOption("verbose", "v", OptionTypeInt, "0", "Verbose level")
	opts.DefineOption("threshold", "t", OptionTypeInt, "1", "Minimum match score")
	opts.DefineOption("recursive", "r", OptionTypeBool, "", "Recurse into directories")
	opts.DefineOption("match", "m", OptionTypeString, "", "Signature file to match against")
	opts.DefineOption("no-header", "", OptionTypeBool, "", "Omit the signature file header")
	return opts
}

func TestParseLongOptions(t *testing.T) {
	t.Run("SeparateValue", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"--threshold", "42", "file.txt"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if opts.GetInt("threshold") != 42 {
			t.Errorf("Expected threshold 42, got %d", opts.GetInt("threshold"))
		}
		if args := opts.Args(); len(args) != 1 || args[0] != "file.txt" {
			t.Errorf("Unexpected positional args: %v", args)
		}
	})

	t.Run("EqualsValue", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"--match=known.sig"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if opts.GetString("match") != "known.sig" {
			t.Errorf("Expected known.sig, got %q", opts.GetString("match"))
		}
	})

	t.Run("BoolWithoutValue", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"--recursive"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !opts.GetBool("recursive") {
			t.Error("Expected recursive to be set")
		}
	})

	t.Run("BoolExplicitFalse", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"--recursive=false"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if opts.GetBool("recursive") {
			t.Error("Expected recursive to be false")
		}
		if !opts.WasExplicitlySet("recursive") {
			t.Error("Explicit false should still count as set")
		}
	})

	t.Run("UnknownOption", func(t *testing.T) {
		opts := testOptions()
		err := opts.Parse([]string{"--bogus"})
		if err == nil || !strings.Contains(err.Error(), "--bogus") {
			t.Errorf("Expected unknown option error, got %v", err)
		}
	})

	t.Run("MissingValue", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"--match"}); err == nil {
			t.Error("Expected error for option without value")
		}
	})

	t.Run("BadInteger", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"--threshold", "lots"}); err == nil {
			t.Error("Expected error for non-integer value")
		}
	})
}

func TestParseShortOptions(t *testing.T) {
	t.Run("SingleBool", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"-r", "dir"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !opts.GetBool("recursive") {
			t.Error("Expected recursive to be set")
		}
	})

	t.Run("ShortWithValue", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"-m", "known.sig", "probe"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if opts.GetString("match") != "known.sig" {
			t.Errorf("Expected known.sig, got %q", opts.GetString("match"))
		}
		if args := opts.Args(); len(args) != 1 || args[0] != "probe" {
			t.Errorf("Unexpected positional args: %v", args)
		}
	})

	t.Run("SingleIntTakesValue", func(t *testing.T) {
		// A lone int short option consumes the next argument as its value,
		// so it must be followed by a number (the help text says so)
		opts := testOptions()
		if err := opts.Parse([]string{"-v", "2", "file"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if opts.GetInt("verbose") != 2 {
			t.Errorf("Expected verbose 2, got %d", opts.GetInt("verbose"))
		}
		if args := opts.Args(); len(args) != 1 || args[0] != "file" {
			t.Errorf("Unexpected positional args: %v", args)
		}

		opts = testOptions()
		if err := opts.Parse([]string{"-v", "file"}); err == nil {
			t.Error("Expected error for -v followed by a non-integer")
		}
	})

	t.Run("RepeatedIntCounts", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"-vvv"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if opts.GetInt("verbose") != 3 {
			t.Errorf("Expected verbose 3 from -vvv, got %d", opts.GetInt("verbose"))
		}
	})

	t.Run("BundledBoolAndValue", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"-rm", "known.sig"}); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if !opts.GetBool("recursive") {
			t.Error("Expected recursive to be set")
		}
		if opts.GetString("match") != "known.sig" {
			t.Errorf("Expected known.sig, got %q", opts.GetString("match"))
		}
	})

	t.Run("UnknownShort", func(t *testing.T) {
		opts := testOptions()
		if err := opts.Parse([]string{"-x"}); err == nil {
			t.Error("Expected error for unknown short option")
		}
	})
}

func TestParseTerminator(t *testing.T) {
	opts := testOptions()
	if err := opts.Parse([]string{"-r", "--", "--threshold", "-v"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	args := opts.Args()
	if len(args) != 2 || args[0] != "--threshold" || args[1] != "-v" {
		t.Errorf("Arguments after -- not treated as positional: %v", args)
	}
	if opts.GetInt("threshold") != 1 {
		t.Errorf("Threshold changed by positional argument: %d", opts.GetInt("threshold"))
	}
}

func TestDefaultsAndExplicitTracking(t *testing.T) {
	opts := testOptions()
	if err := opts.Parse([]string{"file"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if opts.GetInt("threshold") != 1 {
		t.Errorf("Expected default threshold 1, got %d", opts.GetInt("threshold"))
	}
	if opts.WasExplicitlySet("threshold") {
		t.Error("Default value reported as explicitly set")
	}
	if opts.GetBool("recursive") {
		t.Error("Unset bool option reported true")
	}
}

func TestFormatOptionsHelp(t *testing.T) {
	opts := testOptions()
	help := opts.FormatOptionsHelp()

	for _, want := range []string{"-t, --threshold", "-r, --recursive", "--no-header"} {
		if !strings.Contains(help, want) {
			t.Errorf("Help output missing %q:\n%s", want, help)
		}
	}
	if !strings.Contains(help, "(default: 1)") {
		t.Errorf("Help output missing default annotation:\n%s", help)
	}
}
