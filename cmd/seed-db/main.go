// Command seed-db loads the bakery catalog and a default operator into the
// database. It is idempotent: products, categories, and operators are
// upserted, so it can run on every deploy.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/bakehouse/pos/internal/storage/postgres"
)

type productJSON struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	UnitType  string          `json:"unitType"`
	Stock     decimal.Decimal `json:"stock"`
}

const (
	upsertCategorySQL = `
INSERT INTO categories (name) VALUES ($1)
ON CONFLICT (name) DO NOTHING`

	upsertProductSQL = `
INSERT INTO products (id, name, category, unit_price, unit_type, stock, available)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	category = EXCLUDED.category,
	unit_price = EXCLUDED.unit_price,
	unit_type = EXCLUDED.unit_type,
	stock = EXCLUDED.stock,
	available = TRUE`

	upsertOperatorSQL = `
INSERT INTO operators (id, name, role, key_hash, active)
VALUES ($1, $2, $3, $4, TRUE)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	role = EXCLUDED.role,
	key_hash = EXCLUDED.key_hash,
	active = TRUE`
)

func main() {
	var (
		databaseURL  string
		productsFile string
		adminKey     string
		pepper       string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file (.gz supported)")
	flag.StringVar(&adminKey, "admin-key", "", "API key for the seeded admin operator (or POS_SEED_ADMIN_KEY env)")
	flag.StringVar(&pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or POS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if adminKey == "" {
		adminKey = os.Getenv("POS_SEED_ADMIN_KEY")
	}
	if adminKey == "" {
		slog.Error("admin key is required: set --admin-key or POS_SEED_ADMIN_KEY")
		os.Exit(1)
	}
	if pepper == "" {
		pepper = os.Getenv("POS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, adminKey, pepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedOperator(ctx, pool, adminKey, pepper); err != nil {
		return errors.Wrap(err, "seed operator")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	products, err := readProducts(productsFile)
	if err != nil {
		return err
	}

	// Categories first: products carry a foreign key to them.
	seen := make(map[string]bool)
	for _, p := range products {
		if seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		if _, err := pool.Exec(ctx, upsertCategorySQL, p.Category); err != nil {
			return errors.Wrapf(err, "upsert category %s", p.Category)
		}
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, p := range products {
		g.Go(func() error {
			_, err := pool.Exec(gctx, upsertProductSQL,
				p.ID, p.Name, p.Category, p.UnitPrice, p.UnitType, p.Stock,
			)
			return errors.Wrapf(err, "upsert product %s", p.ID)
		})
	}
	return g.Wait()
}

// readProducts parses the products file, transparently decompressing
// gzip-packed catalogs.
func readProducts(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer zr.Close()
		r = zr
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return products, nil
}

func seedOperator(ctx context.Context, pool *pgxpool.Pool, adminKey, pepper string) error {
	slog.Info("seeding default admin operator")

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(adminKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	if _, err := pool.Exec(ctx, upsertOperatorSQL,
		"admin", "Default admin", "admin", keyHash,
	); err != nil {
		return errors.Wrap(err, "upsert admin operator")
	}

	slog.Info("upserted operator", slog.String("id", "admin"), slog.String("role", "admin"))

	return nil
}
