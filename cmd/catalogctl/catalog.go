package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion/validator"
)

// sampleItems is the demo catalog loaded by seed.
var sampleItems = []ingestion.ItemRequest{
	{Name: "Mobile Legends Diamonds", Description: "Top-up diamonds for Mobile Legends: Bang Bang", Price: 49, Platform: "Mobile"},
	{Name: "Mobile Legends Starlight Pass", Description: "Monthly starlight membership", Price: 299, Platform: "Mobile"},
	{Name: "Mobile Legends Skin Bundle", Description: "Limited hero skin bundle", Price: 599, Platform: "Mobile"},
	{Name: "Valorant Points", Description: "In-game currency for Valorant", Price: 250, Platform: "PC"},
	{Name: "Genshin Impact Genesis Crystals", Description: "Premium currency for Genshin Impact", Price: 55, Platform: "Mobile"},
	{Name: "Steam Wallet Code", Description: "Steam wallet top-up", Price: 500, Platform: "PC"},
	{Name: "PlayStation Network Card", Description: "PSN wallet credit", Price: 1000, Platform: "Console"},
	{Name: "Call of Duty Mobile CP", Description: "COD points for Call of Duty: Mobile", Price: 99, Platform: "Mobile"},
	{Name: "Roblox Robux", Description: "Robux for Roblox", Price: 199, Platform: "PC"},
	{Name: "Gift Card", Description: "Store credit usable on any platform", Price: 100},
}

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the catalog schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.repo.Migrate(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Catalog schema is up to date.")
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog",
		Long:  "Creates the schema if needed and inserts a fixed set of demo game items.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.repo.Migrate(ctx); err != nil {
				return err
			}
			pub := publisher.New(a.repo, nil, a.metrics)
			for _, sample := range sampleItems {
				req := sample
				if err := validator.ValidateItemRequest(&req); err != nil {
					return fmt.Errorf("sample item %q: %w", sample.Name, err)
				}
				if _, err := pub.Create(ctx, &req); err != nil {
					return err
				}
			}
			cmd.Printf("Seeded %d items.\n", len(sampleItems))
			return nil
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var req ingestion.ItemRequest
	cmd := &cobra.Command{
		Use:   "add [name]",
		Short: "Add one item to the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Name = args[0]
			if err := validator.ValidateItemRequest(&req); err != nil {
				return err
			}
			item, err := publisher.New(a.repo, nil, a.metrics).Create(cmd.Context(), &req)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd, item)
			}
			cmd.Printf("Added item %d.\n", item.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Description, "description", "", "item description")
	cmd.Flags().Float64Var(&req.Price, "price", 0, "item price")
	cmd.Flags().StringVar(&req.Currency, "currency", "", "currency code (default PHP)")
	cmd.Flags().StringVar(&req.Platform, "platform", "", "platform tag")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an item by identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			if err := publisher.New(a.repo, nil, a.metrics).Delete(cmd.Context(), id); err != nil {
				return err
			}
			cmd.Printf("Deleted item %d.\n", id)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every item in the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.repo.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			return a.printItems(cmd, items)
		},
	}
}
