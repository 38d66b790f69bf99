package warehouse

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	sf "github.com/snowflakedb/gosnowflake"
)

// Profile is one named section of a Snowflake connections.toml file.
type Profile struct {
	Name      string `toml:"-"`
	Account   string `toml:"account"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Protocol  string `toml:"protocol"`
	Warehouse string `toml:"warehouse"`
	Database  string `toml:"database"`
	Schema    string `toml:"schema"`
	Role      string `toml:"role"`
}

// DefaultConnectionsFile returns the location of connections.toml, honouring
// SNOWFLAKE_HOME the same way the Snowflake tooling does.
func DefaultConnectionsFile() string {
	if home := os.Getenv("SNOWFLAKE_HOME"); home != "" {
		return filepath.Join(home, "connections.toml")
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".snowflake", "connections.toml")
	}
	return filepath.Join(userHome, ".snowflake", "connections.toml")
}

// LoadProfile resolves the named profile from path and applies environment
// overrides of the form SNOWFLAKE_CONNECTIONS_<NAME>_<FIELD>.
//
// A missing file is not an error when the overrides alone describe an account.
func LoadProfile(path, name string) (Profile, error) {
	sections := map[string]Profile{}

	if path != "" {
		if _, err := toml.DecodeFile(path, &sections); err != nil && !os.IsNotExist(err) {
			return Profile{}, fmt.Errorf("failed to read connections file %s: %w", path, err)
		}
	}

	p, found := sections[name]
	p.Name = name

	if applyEnvOverrides(&p, os.Getenv) {
		found = true
	}
	if !found {
		return Profile{}, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, name, path)
	}
	if p.Account == "" {
		return Profile{}, fmt.Errorf("connection profile %q has no account", name)
	}
	return p, nil
}

func applyEnvOverrides(p *Profile, getenv func(string) string) bool {
	prefix := "SNOWFLAKE_CONNECTIONS_" + strings.ToUpper(p.Name) + "_"
	fields := map[string]*string{
		"ACCOUNT":   &p.Account,
		"USER":      &p.User,
		"PASSWORD":  &p.Password,
		"HOST":      &p.Host,
		"PROTOCOL":  &p.Protocol,
		"WAREHOUSE": &p.Warehouse,
		"DATABASE":  &p.Database,
		"SCHEMA":    &p.Schema,
		"ROLE":      &p.Role,
	}

	applied := false
	for key, dst := range fields {
		if v := getenv(prefix + key); v != "" {
			*dst = v
			applied = true
		}
	}
	if v := getenv(prefix + "PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			p.Port = n
			applied = true
		}
	}
	return applied
}

// DSN renders the profile as a gosnowflake data source name.
func (p Profile) DSN() (string, error) {
	cfg := &sf.Config{
		Account:   p.Account,
		User:      p.User,
		Password:  p.Password,
		Host:      p.Host,
		Port:      p.Port,
		Protocol:  p.Protocol,
		Warehouse: p.Warehouse,
		Database:  p.Database,
		Schema:    p.Schema,
		Role:      p.Role,
	}
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return "", fmt.Errorf("invalid connection profile %q: %w", p.Name, err)
	}
	return dsn, nil
}
