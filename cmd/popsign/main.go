package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/redis/go-redis/v9"

	"github.com/wrenlabs/popsign"
	"github.com/wrenlabs/popsign/adapters/events"
	"github.com/wrenlabs/popsign/adapters/feed"
	"github.com/wrenlabs/popsign/adapters/store"
)

func main() {
	signerURL := os.Getenv("SIGNER_URL")
	if signerURL == "" {
		signerURL = "https://signer.example.com/popup"
	}

	chainID := uint64(1)
	if v := os.Getenv("CHAIN_ID"); v != "" {
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			log.Fatalf("Failed to parse CHAIN_ID: %v", err)
		}
		chainID = parsed
	}

	cfg := popsign.Config{
		AppName:   "popsign-demo",
		ChainID:   chainID,
		SignerURL: signerURL,
		Origin:    "http://localhost",
		Debug:     os.Getenv("DEBUG") == "true",
	}

	var opts []popsign.Option

	// With Redis configured, sessions survive restarts and the signer can
	// deliver replies through the redisstream fallback feed.
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(redisOpts)

		wmLogger := watermill.NewStdLogger(false, false)
		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        redisClient,
				ConsumerGroup: "popsign-demo",
			},
			wmLogger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis subscriber: %v", err)
		}
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: redisClient,
			},
			wmLogger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}

		opts = append(opts,
			popsign.WithStore(store.NewRedisStore(redisClient, popsign.DefaultStoragePrefix)),
			popsign.WithReplyFeed(feed.NewWatermillFeed(subscriber)),
			popsign.WithEventPublisher(events.NewWatermillPublisher(publisher)),
		)
	}

	client, err := popsign.New(cfg, opts...)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	accounts, err := client.Connect(context.Background())
	if err != nil {
		log.Fatalf("Connect failed: %v", err)
	}

	fmt.Printf("Connected: %v\n", accounts)
}
