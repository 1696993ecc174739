package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
)

const (
	SourceBuiltin  = "builtin"
	SourcePostgres = "postgres"
)

type document struct {
	Concepts   []Concept   `mapstructure:"concepts"`
	Conditions []Condition `mapstructure:"conditions"`
}

// LoadFile reads a table from a YAML, JSON or TOML file. The format is taken
// from the file extension.
func LoadFile(path string) (*Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read knowledge file %s: %w", path, err)
	}
	var doc document
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("decode knowledge file %s: %w", path, err)
	}
	t, err := NewTable(doc.Concepts, doc.Conditions)
	if err != nil {
		return nil, fmt.Errorf("knowledge file %s: %w", path, err)
	}
	return t, nil
}

// Load resolves a KNOWLEDGE_SOURCE value: "builtin", "postgres" or a file
// path. pool may be nil unless source is "postgres".
func Load(ctx context.Context, source string, pool *pgxpool.Pool) (*Table, error) {
	switch source {
	case "", SourceBuiltin:
		return Builtin(), nil
	case SourcePostgres:
		if pool == nil {
			return nil, fmt.Errorf("knowledge source postgres requires a database connection")
		}
		return NewPGStore(pool).Load(ctx)
	default:
		return LoadFile(source)
	}
}
