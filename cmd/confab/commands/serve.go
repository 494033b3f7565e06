package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/spf13/cobra"

	"github.com/confabhq/confab/pkg/alert"
	"github.com/confabhq/confab/pkg/meeting"
	"github.com/confabhq/confab/pkg/server"
	"github.com/confabhq/confab/pkg/store"
	"github.com/confabhq/confab/pkg/summarize"
	"github.com/confabhq/confab/pkg/transcribe"
)

var serveDevMode bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the realtime meeting intelligence server",
	Long: `Run the websocket server.

Clients connect to /ws, join a meeting room and stream audio chunks;
transcription, analysis, alerts, decisions and insights are broadcast
back to the room and persisted to the data directory.

Example config:

  listen: ":8080"
  data_dir: /var/lib/confab
  language: en-US
  transcriber:
    url: wss://stt.example.com/v1/stream
    api_key: $STT_KEY
  openai:
    api_key: $OPENAI_KEY
  rules:
    - kind: keyword
      priority: high
      keywords: [blocker, outage]
      message: Escalation keyword mentioned`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cfgFile)
		if err != nil {
			return err
		}
		return runServe(cmd.Context(), cfg)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveDevMode, "dev", false, "run with an in-memory store (no persistence)")
}

func runServe(parent context.Context, cfg *Config) error {
	log := newLogger()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Transcriber.URL == "" {
		return fmt.Errorf("transcriber.url is required")
	}
	transcriber, err := transcribe.NewWSClient(transcribe.WSClientOptions{
		URL:    cfg.Transcriber.URL,
		APIKey: cfg.Transcriber.APIKey,
	})
	if err != nil {
		return err
	}

	var st store.Store
	if serveDevMode {
		st = store.NewMemory()
	} else {
		if cfg.DataDir == "" {
			return fmt.Errorf("data_dir is required (or use --dev)")
		}
		db, err := store.NewBadger(store.BadgerOptions{Dir: cfg.DataDir})
		if err != nil {
			return err
		}
		st = store.NewRetry(db)
	}
	defer st.Close()

	var summarizer summarize.Summarizer
	if cfg.OpenAI.APIKey != "" {
		opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAI.APIKey)}
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		client := openai.NewClient(opts...)
		summarizer = summarize.NewOpenAI(&client, cfg.OpenAI.Model)
	}

	var notifier alert.Notifier
	if cfg.AlertWebhook != "" {
		notifier = webhookNotifier(cfg.AlertWebhook, log)
	}

	artifacts, err := cfg.Export.fileStore()
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Store:       st,
		Transcriber: transcriber,
		Summarizer:  summarizer,
		Notifier:    notifier,
		Artifacts:   artifacts,
		OrgRules:    cfg.orgRules(),
		Language:    cfg.Language,
		Vocabulary:  cfg.Vocabulary,
		Grace:       time.Duration(cfg.GraceSeconds) * time.Second,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	go srv.Run(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", srv)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	httpSrv := &http.Server{Addr: cfg.Listen, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Listen)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	httpSrv.Shutdown(shutdownCtx)
	srv.Close()
	return nil
}

// webhookNotifier posts alerts as JSON to a webhook URL. Delivery is
// best-effort; failures are logged and dropped.
func webhookNotifier(url string, log *slog.Logger) alert.NotifierFunc {
	client := &http.Client{Timeout: 10 * time.Second}
	return func(ctx context.Context, a *meeting.Alert) {
		body, err := json.Marshal(a)
		if err != nil {
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			log.Warn("alert webhook failed", "error", err)
			return
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			log.Warn("alert webhook rejected", "status", resp.StatusCode)
		}
	}
}
