package main

// This file contains the option parsing system shared by the fdh commands.
// It's duplicated from cmd/fdhash to keep the commands self-contained.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// OptionType defines the type of value an option expects
type OptionType int

const (
	OptionTypeBool OptionType = iota
	OptionTypeString
	OptionTypeInt
)

// OptionDef defines a command-line option
type OptionDef struct {
	Long        string     // Long option name (without --)
	Short       string     // Short option name (without -)
	Type        OptionType // Type of value expected
	Description string     // Help description
	Default     string     // Default value
}

// ParsedOptions holds the parsed command-line options
type ParsedOptions struct {
	values        map[string]string
	args          []string
	defs          map[string]*OptionDef
	shortMap      map[string]string // Maps short options to long options
	explicitlySet map[string]bool   // Tracks which options were explicitly set
}

// NewParsedOptions creates a new options parser
func NewParsedOptions() *ParsedOptions {
	return &ParsedOptions{
		values:        make(map[string]string),
		defs:          make(map[string]*OptionDef),
		shortMap:      make(map[string]string),
		explicitlySet: make(map[string]bool),
	}
}

// DefineOption defines a command-line option
func (p *ParsedOptions) DefineOption(long, short string, optType OptionType, defaultValue, description string) {
	def := &OptionDef{
		Long:        long,
		Short:       short,
		Type:        optType,
		Description: description,
		Default:     defaultValue,
	}
	p.defs[long] = def
	if short != "" {
		p.shortMap[short] = long
	}

	if defaultValue != "" {
		p.values[long] = defaultValue
	}
}

// Parse parses command-line arguments. Options may appear anywhere;
// everything else is collected as positional arguments in order.
func (p *ParsedOptions) Parse(args []string) error {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--":
			p.args = append(p.args, args[i+1:]...)
			return nil
		case strings.HasPrefix(arg, "--"):
			used, err := p.parseLongOption(arg, args, i)
			if err != nil {
				return err
			}
			i += used
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			used, err := p.parseShortOptions(arg, args, i)
			if err != nil {
				return err
			}
			i += used
		default:
			p.args = append(p.args, arg)
		}
	}
	return nil
}

// parseLongOption parses --option, --option=value or --option value.
// Returns how many extra arguments were consumed.
func (p *ParsedOptions) parseLongOption(arg string, args []string, i int) (int, error) {
	optName := strings.TrimPrefix(arg, "--")
	optValue := ""
	hasValue := false
	if equalPos := strings.Index(optName, "="); equalPos != -1 {
		optValue = optName[equalPos+1:]
		optName = optName[:equalPos]
		hasValue = true
	}

	def, exists := p.defs[optName]
	if !exists {
		return 0, fmt.Errorf("unknown option: --%s", optName)
	}

	if def.Type == OptionTypeBool {
		if !hasValue {
			optValue = "true"
		}
		switch optValue {
		case "true", "1":
			optValue = "true"
		case "false", "0":
			optValue = "false"
		default:
			return 0, fmt.Errorf("invalid boolean value for --%s: %s", optName, optValue)
		}
		p.setValue(optName, optValue)
		return 0, nil
	}

	used := 0
	if !hasValue {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("option --%s requires a value", optName)
		}
		optValue = args[i+1]
		used = 1
	}
	if def.Type == OptionTypeInt {
		if _, err := strconv.Atoi(optValue); err != nil {
			return 0, fmt.Errorf("invalid integer value for --%s: %s", optName, optValue)
		}
	}
	p.setValue(optName, optValue)
	return used, nil
}

// parseShortOptions parses -o or bundled -abc. A repeated int short option
// uses the repetition count as the value (-vvv = 3); a non-bool short
// option at the end of a bundle takes the next argument as its value.
func (p *ParsedOptions) parseShortOptions(arg string, args []string, i int) (int, error) {
	shortOpts := strings.TrimPrefix(arg, "-")

	optCounts := make(map[string]int)
	order := []string{}
	for _, r := range shortOpts {
		short := string(r)
		if _, exists := p.shortMap[short]; !exists {
			return 0, fmt.Errorf("unknown option: -%s", short)
		}
		if optCounts[short] == 0 {
			order = append(order, short)
		}
		optCounts[short]++
	}

	used := 0
	for _, short := range order {
		longOpt := p.shortMap[short]
		def := p.defs[longOpt]
		count := optCounts[short]

		switch def.Type {
		case OptionTypeBool:
			p.setValue(longOpt, "true")
		case OptionTypeInt:
			if count > 1 {
				p.setValue(longOpt, strconv.Itoa(count))
				continue
			}
			fallthrough
		case OptionTypeString:
			if i+1+used >= len(args) {
				return 0, fmt.Errorf("option -%s requires a value", short)
			}
			value := args[i+1+used]
			used++
			if def.Type == OptionTypeInt {
				if _, err := strconv.Atoi(value); err != nil {
					return 0, fmt.Errorf("invalid integer value for -%s: %s", short, value)
				}
			}
			p.setValue(longOpt, value)
		}
	}
	return used, nil
}

func (p *ParsedOptions) setValue(long, value string) {
	p.values[long] = value
	p.explicitlySet[long] = true
}

// Args returns the positional arguments
func (p *ParsedOptions) Args() []string {
	return p.args
}

// GetString returns a string option value
func (p *ParsedOptions) GetString(long string) string {
	return p.values[long]
}

// GetInt returns an integer option value (0 if unset or invalid)
func (p *ParsedOptions) GetInt(long string) int {
	value, err := strconv.Atoi(p.values[long])
	if err != nil {
		return 0
	}
	return value
}

// GetBool returns a boolean option value
func (p *ParsedOptions) GetBool(long string) bool {
	return p.values[long] == "true"
}

// WasExplicitlySet returns true if the option appeared on the command line
func (p *ParsedOptions) WasExplicitlySet(long string) bool {
	return p.explicitlySet[long]
}

// FormatOptionsHelp renders the defined options for help output, sorted by
// long name
func (p *ParsedOptions) FormatOptionsHelp() string {
	longs := make([]string, 0, len(p.defs))
	for long := range p.defs {
		longs = append(longs, long)
	}
	sort.Strings(longs)

	var sb strings.Builder
	for _, long := range longs {
		def := p.defs[long]
		name := "    --" + def.Long
		if def.Short != "" {
			name = fmt.Sprintf("  -%s, --%s", def.Short, def.Long)
		}
		fmt.Fprintf(&sb, "%-24s %s", name, def.Description)
		if def.Default != "" {
			fmt.Fprintf(&sb, " (default: %s)", def.Default)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
