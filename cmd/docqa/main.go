// Command docqa answers questions about a folder of documents.
package main

import (
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/bootstrap"
)

func main() {
	cli.Main(bootstrap.New())
}
