// Command keygen adds ed25519 accounts to a Sui keystore file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mmuslimabdulj/hero-arena/internal/config"
	"github.com/mmuslimabdulj/hero-arena/internal/identity"
)

func main() {
	_ = godotenv.Load()

	// Only the keystore path is needed; a package may not be published yet
	cfg, err := config.Read(os.Getenv("HERO_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	path := flag.String("keystore", cfg.Ledger.KeystorePath, "keystore file to extend")
	count := flag.Int("n", 1, "number of accounts to create")
	list := flag.Bool("list", false, "list accounts and exit")
	flag.Parse()

	ks, err := identity.LoadKeystore(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load keystore: %v\n", err)
		os.Exit(1)
	}

	if *list {
		for _, a := range ks.Accounts() {
			fmt.Println(a)
		}
		return
	}

	for i := 0; i < *count; i++ {
		addr, err := ks.Generate()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(addr)
	}
	if err := ks.Save(); err != nil {
		fmt.Fprintf(os.Stderr, "save keystore: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "wrote %d account(s) to %s\n", *count, *path)
}
