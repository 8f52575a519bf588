package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"crypto-advisor/config"
	"crypto-advisor/internal/advice"
	"crypto-advisor/internal/alert"
	"crypto-advisor/internal/chart"
	"crypto-advisor/internal/commands"
	"crypto-advisor/internal/database"
	"crypto-advisor/internal/market"
	"crypto-advisor/internal/metrics"
	platformhttp "crypto-advisor/internal/platform/http"
	"crypto-advisor/internal/poller"
	"crypto-advisor/internal/telegram"
	"crypto-advisor/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func init() {
	config.InitConfig()
	setupLogging()
}

func main() {
	translation.Configure("locales", config.GetString("lang"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(config.GetString("db_path"))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.CloseDB()

	metrics.LoadFromDB(db)

	store, closeStore, err := newBlobStore(ctx, db)
	if err != nil {
		log.Fatalf("Failed to initialize alert store: %v", err)
	}
	defer closeStore()

	book := alert.NewBook(ctx, database.NewAlertRepository(store))
	charts := commands.NewCharts(chart.Options{
		Theme:  chart.Theme(config.GetString("chart_theme")),
		Locale: config.GetString("chart_locale"),
		Width:  config.GetInt("chart_width"),
		Height: config.GetInt("chart_height"),
	})

	var bot *telegram.Bot
	var notifier poller.Notifier = poller.NopNotifier{}
	if token := config.GetString("telegram_bot_token"); token != "" {
		bot, err = telegram.NewBot(telegram.BotConfig{
			Token:          token,
			Debug:          config.GetBool("debug"),
			UpdatesTimeout: 60,
			ChatID:         config.GetInt64("telegram_chat_id"),
		}, charts)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		notifier = bot
	}

	controller := poller.NewController(market.NewClient(newProvider()), newAdvisor(), book, notifier, poller.Config{
		RefreshInterval:   config.GetDuration("refresh_interval"),
		AdviceInterval:    config.GetDuration("advice_interval"),
		Cooldown:          config.GetDuration("cooldown_duration"),
		Debounce:          config.GetDuration("debounce_delay"),
		AdviceMaxAge:      config.GetDuration("advice_max_age"),
		AdvicePriceChange: config.GetFloat64("advice_price_change"),
	})

	polling := make(chan struct{})
	go func() {
		controller.Run(ctx)
		close(polling)
	}()

	if bot != nil {
		bot.Attach(controller)
		updates, err := bot.GetUpdatesChannel()
		if err != nil {
			log.Fatalf("Failed to get updates channel: %v", err)
		}
		go handleUpdates(ctx, bot, updates)
	} else {
		log.Warn("TELEGRAM_BOT_TOKEN not set, running headless")
	}

	if initial := config.GetString("initial_asset"); initial != "" {
		go func() {
			if err := controller.Search(ctx, initial); err != nil {
				log.WithError(err).Warnf("could not track initial asset %q", initial)
			}
		}()
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SaveToDB(db)
			case <-ctx.Done():
				return
			}
		}
	}()

	server := metrics.NewServer(config.GetInt("metrics_port"))
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start metrics and health server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	if bot != nil {
		bot.Bot.StopReceivingUpdates()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("metrics server shutdown: %v", err)
	}
	<-polling

	metrics.SaveToDB(db)
	log.Info("Metrics saved, shutting down...")
}

func setupLogging() {
	if strings.EqualFold(config.GetString("log_format"), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	}
	log.SetLevel(log.InfoLevel)
	if config.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	log.Debug("Starting crypto advisor...")
}

// newBlobStore returns the alert store selected by store_backend
func newBlobStore(ctx context.Context, db *database.DB) (database.BlobStore, func(), error) {
	switch strings.ToLower(config.GetString("store_backend")) {
	case "redis":
		store := database.NewRedisStore(
			config.GetString("redis_addr"),
			config.GetString("redis_password"),
			config.GetInt("redis_db"),
		)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, errors.Wrap(err, "redis unreachable")
		}
		log.Info("Alerts are stored in redis")
		return store, func() { store.Close() }, nil
	case "", "sqlite":
		return database.NewSQLiteStore(db), func() {}, nil
	}
	return nil, nil, errors.Errorf("unknown store backend %q", config.GetString("store_backend"))
}

func newProvider() market.Provider {
	timeout := config.GetDuration("http_timeout")

	if strings.EqualFold(config.GetString("market_provider"), "coinpaprika") {
		log.Info("Using CoinPaprika market data")
		return market.NewCoinPaprika(&http.Client{Timeout: timeout}, config.GetString("api_pro_key"))
	}

	log.Info("Using CoinGecko market data")
	client := platformhttp.NewClient(platformhttp.ClientOptions{
		Timeout:        timeout,
		RequestsPerSec: config.GetInt("market_requests_per_sec"),
	})
	return market.NewCoinGecko(config.GetString("coingecko_api_url"), config.GetString("coingecko_api_key"), client)
}

// newAdvisor returns a disabled advisor when no completion key is configured
func newAdvisor() *advice.Advisor {
	apiKey := config.GetString("llm_api_key")
	if apiKey == "" {
		log.Warn("LLM_API_KEY not set, AI advice is disabled")
		return advice.NewAdvisor(nil)
	}
	return advice.NewAdvisor(advice.NewOpenAI(apiKey, config.GetString("llm_base_url"), config.GetString("llm_model")))
}

func handleUpdates(ctx context.Context, bot *telegram.Bot, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if ctx.Err() != nil {
			return
		}

		if update.InlineQuery != nil {
			bot.HandleInlineQuery(update.InlineQuery)
			continue
		}

		if update.CallbackQuery != nil {
			handleSafely(func() { bot.HandleCallbackQuery(ctx, update.CallbackQuery) })
			continue
		}

		if update.Message == nil || !update.Message.IsCommand() {
			log.Debug("Received non-message or non-command")
			continue
		}

		metrics.MessagesHandled.Inc()
		handleSafely(func() { handleCommand(ctx, bot, update) })
	}
}

func handleSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			stackBuf := make([]byte, 1024)
			stackSize := runtime.Stack(stackBuf, false)
			stackTrace := bytes.TrimRight(stackBuf[:stackSize], "\x00")
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, stackTrace)
		}
	}()
	fn()
}

func handleCommand(ctx context.Context, bot *telegram.Bot, update tgbotapi.Update) {
	text := bot.HandleUpdate(ctx, update)
	metrics.CommandsProcessed.Inc()
	if text == "" {
		return
	}

	err := bot.SendMessage(telegram.Message{
		ChatID:    update.Message.Chat.ID,
		Text:      text,
		MessageID: update.Message.MessageID,
	})
	if err != nil {
		log.Errorf("Failed to send message: %v", err)
	}
}
