// Package config loads the database and persister settings of relmap tools
// from a YAML or INI file, with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/dialect"
	"github.com/syssam/relmap/dialect/sql"
	"github.com/syssam/relmap/mapping"
	"github.com/syssam/relmap/schema"
	"github.com/syssam/relmap/schema/field"
)

// Config holds the settings of one database.
type Config struct {
	Dialect           string        `yaml:"dialect"`
	DSN               string        `yaml:"dsn"`
	BatchSize         int           `yaml:"batch_size"`
	InOperatorMaxSize int           `yaml:"in_operator_max_size"`
	SlowThreshold     time.Duration `yaml:"slow_threshold"`
	Tables            []Table       `yaml:"tables"`
}

// Table declares a mapped table. When Name is empty, the table is named
// after Entity, the Go type it maps ("OrderItem" gives "order_items").
type Table struct {
	Name    string   `yaml:"name"`
	Entity  string   `yaml:"entity"`
	Schema  string   `yaml:"schema"`
	Columns []Column `yaml:"columns"`
	Joins   []Join   `yaml:"joins"`
}

// Column declares a column of a table. Type is a field.Type name, like
// "int64", "string" or "uuid.UUID".
type Column struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	Nullable      bool   `yaml:"nullable"`
	Primary       bool   `yaml:"primary"`
	AutoGenerated bool   `yaml:"auto_generated"`
}

// Join declares an edge from a table to Table, on Left = Right.
type Join struct {
	Table string `yaml:"table"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
	Outer bool   `yaml:"outer"`
}

// Load reads the configuration at path, YAML or INI depending on its
// extension, applies the RELMAP_* environment overrides and the defaults
// of the dialect.
func Load(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		cfg, err = loadYAML(path)
	case ".ini":
		cfg, err = loadINI(path)
	default:
		return nil, relmap.NewConfigError("load", "unsupported config format %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.normalize()
}

func loadYAML(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// loadINI reads the [database] section and one [table NAME] section per
// table. Table keys are column names with "TYPE [primary] [nullable]
// [auto]" values, in declaration order.
func loadINI(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	db := f.Section("database")
	cfg := &Config{
		Dialect:           db.Key("dialect").String(),
		DSN:               db.Key("dsn").String(),
		BatchSize:         db.Key("batch_size").MustInt(0),
		InOperatorMaxSize: db.Key("in_operator_max_size").MustInt(0),
		SlowThreshold:     db.Key("slow_threshold").MustDuration(0),
	}
	for _, sec := range f.Sections() {
		name, ok := strings.CutPrefix(sec.Name(), "table ")
		if !ok {
			continue
		}
		t := Table{Name: strings.TrimSpace(name)}
		for _, k := range sec.Keys() {
			fields := strings.Fields(k.String())
			if len(fields) == 0 {
				return nil, relmap.NewConfigError("load", "column %s.%s has no type", t.Name, k.Name())
			}
			c := Column{Name: k.Name(), Type: fields[0]}
			for _, flag := range fields[1:] {
				switch flag {
				case "primary":
					c.Primary = true
				case "nullable":
					c.Nullable = true
				case "auto":
					c.AutoGenerated = true
				default:
					return nil, relmap.NewConfigError("load", "column %s.%s: unknown flag %q", t.Name, k.Name(), flag)
				}
			}
			t.Columns = append(t.Columns, c)
		}
		cfg.Tables = append(cfg.Tables, t)
	}
	return cfg, nil
}

// applyEnv overrides file values with the RELMAP_* variables found by
// lookup.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("RELMAP_DIALECT"); ok && v != "" {
		c.Dialect = v
	}
	if v, ok := lookup("RELMAP_DSN"); ok && v != "" {
		c.DSN = v
	}
	for _, o := range []struct {
		env string
		dst *int
	}{
		{"RELMAP_BATCH_SIZE", &c.BatchSize},
		{"RELMAP_IN_MAX_SIZE", &c.InOperatorMaxSize},
	} {
		v, ok := lookup(o.env)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return relmap.NewConfigError("env", "%s: %v", o.env, err)
		}
		*o.dst = n
	}
	if v, ok := lookup("RELMAP_SLOW_THRESHOLD"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return relmap.NewConfigError("env", "RELMAP_SLOW_THRESHOLD: %v", err)
		}
		c.SlowThreshold = d
	}
	return nil
}

// normalize checks the settings and fills the defaults of the dialect.
func (c *Config) normalize() error {
	switch c.Dialect {
	case dialect.MySQL, dialect.Postgres, dialect.SQLite:
	default:
		return relmap.NewConfigError("load", "unsupported dialect %q", c.Dialect)
	}
	d := sql.DialectFor(c.Dialect)
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.InOperatorMaxSize == 0 {
		c.InOperatorMaxSize = d.InOperatorMaxSize
	}
	switch {
	case c.BatchSize < 1:
		return relmap.NewConfigError("load", "invalid batch size %d", c.BatchSize)
	case c.InOperatorMaxSize < 1:
		return relmap.NewConfigError("load", "invalid in operator max size %d", c.InOperatorMaxSize)
	case c.SlowThreshold < 0:
		return relmap.NewConfigError("load", "negative slow threshold %s", c.SlowThreshold)
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.Name != "" {
			continue
		}
		if t.Entity == "" {
			return relmap.NewConfigError("load", "table %d has neither name nor entity", i)
		}
		t.Name = mapping.TableNameOf(t.Entity)
	}
	return nil
}

// SQLDialect returns the dialect constants of the configuration.
func (c *Config) SQLDialect() sql.Dialect {
	d := sql.DialectFor(c.Dialect)
	d.BatchSize = c.BatchSize
	d.InOperatorMaxSize = c.InOperatorMaxSize
	return d
}

// Schema builds the declared tables, by name.
func (c *Config) Schema() (map[string]*schema.Table, error) {
	tables := make(map[string]*schema.Table, len(c.Tables))
	for _, t := range c.Tables {
		if _, ok := tables[t.Name]; ok {
			return nil, relmap.NewConfigError("schema", "table %q declared twice", t.Name)
		}
		st := schema.NewTable(t.Name).SetSchema(t.Schema)
		for _, col := range t.Columns {
			typ, err := ParseType(col.Type)
			if err != nil {
				return nil, relmap.NewConfigError("schema", "column %s.%s: %v", t.Name, col.Name, err)
			}
			var opts []schema.ColumnOption
			if col.Nullable {
				opts = append(opts, schema.Nullable())
			}
			if col.Primary {
				opts = append(opts, schema.PrimaryKey())
			}
			if col.AutoGenerated {
				opts = append(opts, schema.AutoGenerated())
			}
			st.AddColumn(col.Name, typ, opts...)
		}
		tables[t.Name] = st
	}
	return tables, nil
}

// ParseType returns the field.Type named s.
func ParseType(s string) (field.Type, error) {
	for t := field.TypeInvalid + 1; t.Valid(); t++ {
		if t.String() == s {
			return t, nil
		}
	}
	switch s {
	case "uuid":
		return field.TypeUUID, nil
	case "time":
		return field.TypeTime, nil
	case "bytes":
		return field.TypeBytes, nil
	}
	return field.TypeInvalid, fmt.Errorf("unknown type %q", s)
}
