package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/tesloshop/backend/internal/tools/migrate"
	"github.com/tesloshop/backend/internal/tools/seed"
)

func main() {
	root := &cobra.Command{Use: "catalogctl", Short: "Operational tooling for the catalog backend"}
	root.AddCommand(migrate.NewRootCommand(), seed.NewRootCommand())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
