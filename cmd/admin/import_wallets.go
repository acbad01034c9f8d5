package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vietddude/harvester/internal/core/domain"
	"github.com/vietddude/harvester/internal/infra/chain/evm"
	"github.com/vietddude/harvester/internal/infra/storage/postgres"
)

// Bulk-imports wallets from line files: one private key per line, with an
// optional proxy file matched by position.
func main() {
	keysPath := flag.String("keys", "private_keys.txt", "file with one private key per line")
	proxiesPath := flag.String("proxies", "proxies.txt", "file with one proxy per line (optional)")
	dbURL := flag.String("db", "", "database URL (defaults to DATABASE_URL)")
	flag.Parse()

	_ = godotenv.Load()

	url := *dbURL
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "no database URL: pass -db or set DATABASE_URL")
		os.Exit(1)
	}

	keys, err := readLines(*keysPath)
	if err != nil {
		panic(err)
	}
	proxies, err := readLines(*proxiesPath)
	if err != nil && !os.IsNotExist(err) {
		panic(err)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, postgres.Config{URL: url})
	if err != nil {
		panic(err)
	}
	defer db.Close()

	repo := postgres.NewWalletRepo(db)

	imported := 0
	for i, key := range keys {
		address, err := evm.AddressFromKey(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", i+1, err)
			continue
		}

		wallet := &domain.Wallet{
			PrivateKey: key,
			Address:    address,
		}
		if i < len(proxies) {
			wallet.Proxy = proxies[i]
		}

		if err := repo.Save(ctx, wallet); err != nil {
			fmt.Fprintf(os.Stderr, "wallet %s: %v\n", address, err)
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d of %d wallets\n", imported, len(keys))
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
