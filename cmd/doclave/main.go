package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/plugin/decoder"
	"github.com/doclave/doclave/server"
	svcingest "github.com/doclave/doclave/server/service/ingest"
	"github.com/doclave/doclave/store"
	"github.com/doclave/doclave/store/db"
)

const greetingBanner = `
Doclave — compliance knowledge base
`

var rootCmd = &cobra.Command{
	Use:   "doclave",
	Short: "Document compliance pipeline: ingest, retrieve, analyze",
	Run: func(_ *cobra.Command, _ []string) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		instanceProfile, err := loadProfile()
		if err != nil {
			fmt.Printf("failed to load profile, error: %+v\n", err)
			return
		}

		logger := newLogger(instanceProfile)
		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			fmt.Printf("failed to open store, error: %+v\n", err)
			return
		}

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, logger)
		if err != nil {
			fmt.Printf("failed to create server, error: %+v\n", err)
			return
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-c
			logger.Info("received signal, shutting down", "signal", sig.String())
			s.Shutdown(ctx)
			cancel()
		}()

		fmt.Print(greetingBanner + "\n")
		if err := s.Start(ctx); err != nil {
			if ctx.Err() == nil {
				fmt.Printf("failed to start server, error: %+v\n", err)
				cancel()
			}
		}

		<-ctx.Done()
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed <dir>",
	Short: "Ingest every supported document in a directory into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		logger := newLogger(instanceProfile)
		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		aiConfig := ai.NewConfigFromProfile(instanceProfile)
		if err := aiConfig.Validate(); err != nil {
			return err
		}
		embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
		if err != nil {
			return err
		}
		ingestor := svcingest.NewIngestor(storeInstance, embedder, instanceProfile, logger)

		entries, err := os.ReadDir(args[0])
		if err != nil {
			return err
		}

		stored, skipped, failed := 0, 0, 0
		for _, entry := range entries {
			if entry.IsDir() || !decoder.Supported(entry.Name()) {
				continue
			}
			content, err := os.ReadFile(filepath.Join(args[0], entry.Name()))
			if err != nil {
				fmt.Printf("  ✗ %s: %v\n", entry.Name(), err)
				failed++
				continue
			}
			result, err := ingestor.IngestFile(ctx, entry.Name(), content)
			if err != nil {
				fmt.Printf("  ✗ %s: %v\n", entry.Name(), err)
				failed++
				continue
			}
			switch result.Status {
			case svcingest.StatusStored:
				fmt.Printf("  ✓ %s: %d chunks\n", entry.Name(), result.ChunkCount)
				stored++
			case svcingest.StatusAlreadyExists:
				fmt.Printf("  - %s: already in knowledge base\n", entry.Name())
				skipped++
			}
		}
		fmt.Printf("\nSeed complete: %d stored, %d skipped, %d failed\n", stored, skipped, failed)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Print knowledge base statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		instanceProfile, err := loadProfile()
		if err != nil {
			return err
		}
		storeInstance, err := openStore(instanceProfile)
		if err != nil {
			return err
		}
		defer storeInstance.Close()

		stats, err := storeInstance.Stats(cmd.Context(), instanceProfile.Collection)
		if err != nil {
			return err
		}

		fmt.Printf("Collection:  %s\n", instanceProfile.Collection)
		fmt.Printf("Documents:   %d\n", stats.DocumentCount)
		fmt.Printf("Chunks:      %d\n", stats.TotalChunks)
		for _, doc := range stats.Documents {
			fmt.Printf("  %s (%s): %d full-text, %d section chunks\n",
				doc.Filename, doc.DocumentID, doc.FullTextChunks, doc.SectionChunks)
		}
		return nil
	},
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		Mode:             viper.GetString("mode"),
		Addr:             viper.GetString("addr"),
		Port:             viper.GetInt("port"),
		Data:             viper.GetString("data"),
		Driver:           viper.GetString("driver"),
		DSN:              viper.GetString("dsn"),
		Collection:       viper.GetString("collection"),
		InboxDir:         viper.GetString("inbox-dir"),
		Version:          "0.1.0",
		ChunkSize:        viper.GetInt("chunk-size"),
		ChunkOverlap:     viper.GetInt("chunk-overlap"),
		AIBaseURL:        viper.GetString("ai-base-url"),
		AIAPIKey:         viper.GetString("ai-api-key"),
		AIEmbedModel:     viper.GetString("ai-embed-model"),
		AIChatModel:      viper.GetString("ai-chat-model"),
		AIRerankModel:    viper.GetString("ai-rerank-model"),
		AIDimensions:     viper.GetInt("ai-dimensions"),
		GoldenEmbeddings: viper.GetString("golden-embeddings"),
	}
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(p *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(p)
	if err != nil {
		return nil, err
	}
	return store.New(dbDriver, p), nil
}

func newLogger(p *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8081)
	viper.SetDefault("data", ".")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("collection", "compliance_kb")
	viper.SetDefault("chunk-size", 1000)
	viper.SetDefault("chunk-overlap", 200)
	viper.SetDefault("ai-embed-model", "text-embedding-3-small")
	viper.SetDefault("ai-chat-model", "gpt-4o-mini")
	viper.SetDefault("ai-dimensions", 1536)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8081, "port of server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("collection", "compliance_kb", "knowledge base collection name")
	rootCmd.PersistentFlags().String("inbox-dir", "", "directory scanned periodically for documents to ingest")
	rootCmd.PersistentFlags().Int("chunk-size", 1000, "chunk size in characters")
	rootCmd.PersistentFlags().Int("chunk-overlap", 200, "chunk overlap in characters")
	rootCmd.PersistentFlags().String("ai-base-url", "", "OpenAI-compatible API base URL")
	rootCmd.PersistentFlags().String("ai-api-key", "", "API key for the embedding/chat provider")
	rootCmd.PersistentFlags().String("ai-embed-model", "text-embedding-3-small", "embedding model")
	rootCmd.PersistentFlags().String("ai-chat-model", "gpt-4o-mini", "chat model for reference staleness checks")
	rootCmd.PersistentFlags().String("ai-rerank-model", "", "rerank model for second-stage search ranking (empty disables)")
	rootCmd.PersistentFlags().Int("ai-dimensions", 1536, "embedding vector dimensions")
	rootCmd.PersistentFlags().String("golden-embeddings", "", "path to golden section embeddings JSON")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("doclave")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(verifyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("failed to execute command, error: %+v\n", err)
		os.Exit(1)
	}
}
