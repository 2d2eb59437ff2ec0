package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tecmax-dev/sisvida-sub014/internal/migrate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB abre a conexão de DATABASE_URL e aplica as migrações. Testes de
// integração chamam isto primeiro; sem a variável, o teste é pulado.
func DB(t *testing.T, ctx context.Context) *gorm.DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(url), &gorm.Config{})
	if err != nil {
		t.Fatalf("open %s: %v", url, err)
	}
	dir, err := findMigrationsDir()
	if err != nil {
		t.Fatalf("migrations: %v", err)
	}
	if err := migrate.Run(ctx, db, dir); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// findMigrationsDir sobe a árvore a partir do diretório do teste até achar
// migrations/ na raiz do módulo.
func findMigrationsDir() (string, error) {
	cur, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(cur, "migrations")
		if st, err := os.Stat(candidate); err == nil && st.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return "", errors.New("migrations dir not found from working directory")
}
