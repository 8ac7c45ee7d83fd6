package main

import (
	"os"

	"github.com/JonMunkholm/fairprice/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
