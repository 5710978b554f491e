package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
	"github.com/yega-app/yega-api/internal/domain/user"
	"github.com/yega-app/yega-api/internal/storage/postgres"
)

const demoPassword = "password123"

var demoUsers = []user.User{
	{Name: "Alice", Email: "alice@example.com", Role: auth.RoleClient},
	{Name: "Bob", Email: "bob@example.com", Role: auth.RoleClient},
	{Name: "Store Owner", Email: "storeowner@example.com", Role: auth.RoleStore},
}

var demoProducts = []product.Product{
	{Name: "Laptop", Description: "A powerful laptop.", Price: decimal.NewFromInt(1200)},
	{Name: "Mouse", Description: "A comfortable mouse.", Price: decimal.NewFromInt(25)},
	{Name: "Keyboard", Description: "A mechanical keyboard.", Price: decimal.NewFromInt(75)},
}

func main() {
	var (
		databaseURL string
		stock       int
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&stock, "stock", 50, "initial stock of every demo product")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, stock); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string, stock int) error {
	slog.Info("running migrations")
	if err := postgres.RunMigrations(databaseURL, zap.NewNop()); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)
	owner, err := seedUsers(ctx, users)
	if err != nil {
		return errors.Wrap(err, "seed users")
	}
	if owner == nil {
		slog.Info("demo data already present, nothing to do")
		return nil
	}

	s := &store.Store{
		Name:        "Super Store",
		Description: "A store with everything you need.",
		OwnerID:     owner.ID,
	}
	if err := postgres.NewStoreRepository(pool).Create(ctx, s); err != nil {
		return errors.Wrap(err, "create store")
	}
	slog.Info("created store", slog.String("id", s.ID), slog.String("name", s.Name))

	products := postgres.NewProductRepository(pool)
	for _, p := range demoProducts {
		p.StoreID = s.ID
		p.Stock = stock
		if err := products.Create(ctx, &p); err != nil {
			return errors.Wrapf(err, "create product %s", p.Name)
		}
		slog.Info("created product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

// seedUsers creates the demo accounts and returns the store owner. It returns
// nil when the accounts already exist.
func seedUsers(ctx context.Context, users *postgres.UserRepository) (*user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	var owner *user.User
	for _, u := range demoUsers {
		u.PasswordHash = string(hash)
		switch err := users.Create(ctx, &u); {
		case errors.Is(err, user.ErrEmailTaken):
			slog.Info("user exists", slog.String("email", u.Email))
			continue
		case err != nil:
			return nil, errors.Wrapf(err, "create user %s", u.Email)
		}
		slog.Info("created user", slog.String("email", u.Email), slog.String("role", string(u.Role)))
		if u.Role == auth.RoleStore {
			owner = &u
		}
	}
	return owner, nil
}
