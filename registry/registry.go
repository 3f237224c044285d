// Package registry loads the user-supplied per-test switch table and
// ignore list. Both are data-only YAML documents; nothing in them is
// ever executed.
package registry

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// SwitchRule maps a name pattern to a literal string of extra simulator
// switches. Patterns are regular expressions searched against the
// candidate's base name.
type SwitchRule struct {
	Pattern string `yaml:"pattern"`
	Flags   string `yaml:"flags"`

	re *regexp.Regexp
}

// FlagTable is an ordered list of switch rules. Lookup is a linear scan;
// the first rule whose pattern matches wins.
type FlagTable struct {
	rules []SwitchRule
}

// Resolve returns the extra switch string for a test name, or the empty
// string when no rule matches.
func (t *FlagTable) Resolve(name string) string {
	if t == nil {
		return ""
	}
	for _, r := range t.rules {
		if r.re.MatchString(name) {
			return r.Flags
		}
	}
	return ""
}

// Len returns the number of rules in the table.
func (t *FlagTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// IgnoreSet holds bare test names to skip unconditionally.
type IgnoreSet map[string]struct{}

// Contains reports whether the base name is in the ignore set.
func (s IgnoreSet) Contains(base string) bool {
	_, ok := s[base]
	return ok
}

// Registry holds the resolved run tables.
type Registry struct {
	config  Config
	table   *FlagTable
	ignores IgnoreSet
}

// Config contains registry configuration.
type Config struct {
	Log          log.Logger
	SwitchesFile string // optional path to the switch table YAML
	IgnoreFile   string // optional path to the ignore list YAML
}

// NewRegistry loads the configured tables. An empty file path yields an
// empty table or set; a supplied but malformed file is an error, raised
// before any test executes.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}

	r := &Registry{
		config:  cfg,
		table:   &FlagTable{},
		ignores: IgnoreSet{},
	}

	if cfg.SwitchesFile != "" {
		table, err := loadSwitchTable(cfg.SwitchesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load switch table: %w", err)
		}
		r.table = table
	}

	if cfg.IgnoreFile != "" {
		ignores, err := loadIgnoreSet(cfg.IgnoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load ignore list: %w", err)
		}
		r.ignores = ignores
	}

	cfg.Log.Debug("Registry loaded", "switchRules", r.table.Len(), "ignored", len(r.ignores))
	return r, nil
}

// FlagTable returns the loaded switch table.
func (r *Registry) FlagTable() *FlagTable {
	return r.table
}

// IgnoreSet returns the loaded ignore set.
func (r *Registry) IgnoreSet() IgnoreSet {
	return r.ignores
}

type switchFile struct {
	Switches []SwitchRule `yaml:"switches"`
}

type ignoreFile struct {
	Ignore []string `yaml:"ignore"`
}

func loadSwitchTable(path string) (*FlagTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading switch file: %w", err)
	}

	var sf switchFile
	if err := strictUnmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing switch file: %w", err)
	}
	if sf.Switches == nil {
		return nil, fmt.Errorf("switch file %s does not define a 'switches' list", path)
	}

	for i := range sf.Switches {
		rule := &sf.Switches[i]
		if rule.Pattern == "" {
			return nil, fmt.Errorf("switch rule %d has an empty pattern", i)
		}
		rule.re, err = regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", rule.Pattern, err)
		}
	}

	return &FlagTable{rules: sf.Switches}, nil
}

func loadIgnoreSet(path string) (IgnoreSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}

	var igf ignoreFile
	if err := strictUnmarshal(data, &igf); err != nil {
		return nil, fmt.Errorf("parsing ignore file: %w", err)
	}
	if igf.Ignore == nil {
		return nil, fmt.Errorf("ignore file %s does not define an 'ignore' list", path)
	}

	set := make(IgnoreSet, len(igf.Ignore))
	for _, name := range igf.Ignore {
		set[name] = struct{}{}
	}
	return set, nil
}

// strictUnmarshal decodes YAML rejecting unknown fields, so a typo'd key
// fails loudly instead of silently yielding an empty table.
func strictUnmarshal(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}
