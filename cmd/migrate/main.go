// migrate aplica en orden los scripts de migrations/ que aún no estén registrados en schema_migrations.
//
// Uso: go run ./cmd/migrate [directorio]
// Por defecto usa ./migrations. Cada archivo se aplica en su propia transacción; un archivo ya aplicado
// cuyo contenido cambió detiene el proceso.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onlyperf/warehouse-api/internal/infrastructure/postgres"
	"github.com/onlyperf/warehouse-api/pkg/config"
	"github.com/onlyperf/warehouse-api/pkg/logger"
)

// lockKey identifica el advisory lock del migrador.
const lockKey = 5310442

type migration struct {
	version  string
	filename string
	sql      string
	checksum string
}

func main() {
	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "migrate"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	conn, err := acquireLock(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("advisory lock")
	}
	defer conn.Release()

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		log.Fatal().Err(err).Msg("crear schema_migrations")
	}

	migrations, err := discover(dir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("leer migraciones")
	}
	applied := 0
	for _, m := range migrations {
		done, err := apply(ctx, pool, m)
		if err != nil {
			log.Fatal().Err(err).Str("file", m.filename).Msg("migración fallida")
		}
		if done {
			applied++
			log.Info().Str("file", m.filename).Msg("migración aplicada")
		} else {
			log.Debug().Str("file", m.filename).Msg("migración ya aplicada")
		}
	}
	log.Info().Int("applied", applied).Int("total", len(migrations)).Msg("migraciones completas")
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool) (*pgxpool.Conn, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockKey).Scan(&locked); err != nil {
		conn.Release()
		return nil, fmt.Errorf("try advisory lock: %w", err)
	}
	if !locked {
		conn.Release()
		return nil, errors.New("otro proceso de migración está en curso")
	}
	return conn, nil
}

// discover lee los .sql con formato NNN_descripcion.sql ordenados por nombre.
func discover(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	seen := map[string]string{}
	var out []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		version, _, ok := strings.Cut(e.Name(), "_")
		if !ok || version == "" {
			return nil, fmt.Errorf("nombre inválido %s: se espera NNN_descripcion.sql", e.Name())
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("versión %s duplicada en %s y %s", version, prev, e.Name())
		}
		seen[version] = e.Name()
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		sum := sha256.Sum256(raw)
		out = append(out, migration{version: version, filename: e.Name(), sql: string(raw), checksum: hex.EncodeToString(sum[:])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].filename < out[j].filename })
	return out, nil
}

// apply ejecuta m si no está registrada. Devuelve false si ya estaba aplicada con el mismo checksum.
func apply(ctx context.Context, pool *pgxpool.Pool, m migration) (bool, error) {
	var existing string
	err := pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", m.version).Scan(&existing)
	switch {
	case err == nil && existing == m.checksum:
		return false, nil
	case err == nil:
		return false, fmt.Errorf("checksum distinto al registrado (%s)", existing)
	case !errors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("query schema_migrations: %w", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.sql); err != nil {
		return false, fmt.Errorf("exec: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		m.version, m.filename, m.checksum); err != nil {
		return false, fmt.Errorf("record migration: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}
