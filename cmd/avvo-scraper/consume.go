package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/maltedev/avvo-profile-scraper/internal/database"
	"github.com/maltedev/avvo-profile-scraper/internal/events"
	"github.com/spf13/cobra"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Follow PROFILE_SCRAPED events on the Redis stream and print them as JSON lines.",
	RunE:  runConsume,
}

var (
	consumeGroup string
	consumeName  string
)

func init() {
	consumeCmd.Flags().StringVar(&consumeGroup, "group", "avvo-profile-consumers", "consumer group")
	consumeCmd.Flags().StringVar(&consumeName, "name", "", "consumer name (defaults to the hostname)")
	rootCmd.AddCommand(consumeCmd)
}

func runConsume(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, err := connectRedis(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	name := consumeName
	if name == "" {
		name, _ = os.Hostname()
	}

	out := json.NewEncoder(cmd.OutOrStdout())
	consumer := events.NewConsumer(client, events.ConsumerConfig{
		Stream:   database.DefaultStream,
		Group:    consumeGroup,
		Consumer: name,
	}, func(ctx context.Context, id string, p *events.ProfileScrapedPayload) error {
		log.Info("profile event received",
			"message_id", id,
			"nomenclature_id", p.NomenclatureID,
			"reviews", p.ReviewCount)
		return out.Encode(p)
	}, log)

	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
