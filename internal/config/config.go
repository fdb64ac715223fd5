package config

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	// Config represents an application configuration.
	Config struct {
		// The data source name (DSN) for connecting to the database.
		DSN string `yaml:"dsn" env:"DATABASE_URI"`
		// Base URL this service is reachable at from the outside.
		// Used to build the IPN callback URL for the gateway.
		PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
		// Subconfigs.
		HTTPServer  HTTPServer  `yaml:"http_server"`
		NowPayments NowPayments `yaml:"nowpayments"`
		Telegram    Telegram    `yaml:"telegram"`
		Sweeper     Sweeper     `yaml:"sweeper"`
		Order       Order       `yaml:"order"`
		ServiceAuth ServiceAuth `yaml:"service_auth"`
		Logger      Logger      `yaml:"logger"`
	}
	// Config for HTTP server.
	HTTPServer struct {
		// The server startup address.
		Address string `yaml:"run_address" env:"RUN_ADDRESS" env-default:"127.0.0.1:8080"`
		// Read Header Timeout in seconds.
		Timeout time.Duration `yaml:"timeout" env-default:"5s"`
		// Idle timeout in seconds.
		IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
		// Shutdown timeout in seconds.
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
	}
	// Config for the NOWPayments gateway client and webhook.
	NowPayments struct {
		// Gateway REST API base URL.
		APIURL string `yaml:"api_url" env:"NOWPAYMENTS_API_URL" env-default:"https://api.nowpayments.io/v1"`
		// API key for outbound calls.
		APIKey string `yaml:"api_key" env:"NOWPAYMENTS_API_KEY"`
		// Shared secret for IPN signature verification.
		IPNSecret string `yaml:"ipn_secret" env:"NOWPAYMENTS_IPN_SECRET"`
		// Path the webhook endpoint is mounted at.
		IPNPath string `yaml:"ipn_path" env:"NOWPAYMENTS_IPN_PATH" env-default:"/webhooks/nowpayments"`
		// Fiat currency invoices are priced in.
		PriceCurrency string `yaml:"price_currency" env:"PRICE_CURRENCY" env-default:"usd"`
		// Crypto currency the user pays with.
		PayCurrency string `yaml:"pay_currency" env:"PAY_CURRENCY" env-default:"usdttrc20"`
		// Timeout for outbound gateway calls.
		Timeout time.Duration `yaml:"timeout" env-default:"10s"`
	}
	// Config for the Telegram message sender.
	Telegram struct {
		// Bot API base URL, overridable for tests.
		APIURL string `yaml:"api_url" env:"TELEGRAM_API_URL" env-default:"https://api.telegram.org"`
		// Bot token.
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		// Chat id receiving admin notifications.
		AdminChatID string `yaml:"admin_chat_id" env:"ADMIN_TELEGRAM_ID"`
		// When to notify the admin: "finished" or "first_paid".
		AdminNotifyMode string `yaml:"admin_notify_mode" env:"ADMIN_NOTIFY_MODE" env-default:"first_paid"`
		// Timeout for outbound bot API calls.
		Timeout time.Duration `yaml:"timeout" env-default:"10s"`
	}
	// Config for the expiry sweep loop.
	Sweeper struct {
		// Interval between sweep ticks.
		Interval time.Duration `yaml:"interval" env:"SWEEP_INTERVAL" env-default:"60s"`
	}
	// Pricing and limits snapshot source for new orders.
	Order struct {
		// USDT per one THB credit, decimal string.
		FxUsdtPerThb string `yaml:"fx_usdt_per_thb" env:"FX_USDT_PER_THB" env-default:"0.028"`
		// Commission rate, decimal string.
		CommissionRate string `yaml:"commission_rate" env:"COMMISSION_RATE" env-default:"0.05"`
		// Credit amount bounds.
		MinCreditsTHB int64 `yaml:"min_credits_thb" env:"MIN_CREDITS_THB" env-default:"100"`
		MaxCreditsTHB int64 `yaml:"max_credits_thb" env:"MAX_CREDITS_THB" env-default:"100000"`
		// How long an order may stay unpaid before the sweep expires it.
		TTL time.Duration `yaml:"ttl" env:"ORDER_TTL" env-default:"20m"`
		// Invoice creation throttle.
		InvoiceInterval time.Duration `yaml:"invoice_interval" env-default:"10s"`
		InvoiceBurst    int           `yaml:"invoice_burst" env-default:"3"`
	}
	// Config for internal API authentication.
	ServiceAuth struct {
		// Service token signing key.
		SigningKey string `yaml:"signing_key" env:"SERVICE_SIGNING_KEY"`
		// Service token expiration.
		Expiration time.Duration `yaml:"expiration" env:"SERVICE_TOKEN_EXPIRATION" env-default:"24h"`
	}
	// Config for application's logger.
	Logger struct {
		// Path to store log files.
		Path string `yaml:"path" env:"LOG_PATH"`
		// Application logging level.
		Level string `yaml:"level" env:"LOG_LEVEL"`
		// Log files details.
		MaxSizeMB  int `yaml:"max_size_mb"`
		MaxBackups int `yaml:"max_backups"`
		MaxAgeDays int `yaml:"max_age_days"`
	}
)

// MustLoad returns an application configuration which is populated
// from the given configuration file, environment variables and flags.
func MustLoad() *Config {
	// Configuration yaml file path.
	configPath := flag.String("config", "./config/local.yml", "path to the config file")
	flag.Parse()

	var cfg Config

	// Load from YAML cfg file if present.
	if _, err := os.Stat(*configPath); err == nil {
		bytes, err := os.Open(*configPath)
		if err != nil {
			log.Fatalf("failed to open config file: %s", *configPath)
		}
		if err = cleanenv.ParseYAML(bytes, &cfg); err != nil {
			log.Fatalf("failed to parse config file: %s", *configPath)
		}
	}

	// Read given flags.
	flag.StringVar(&cfg.HTTPServer.Address, "a", cfg.HTTPServer.Address, "server startup address")
	flag.StringVar(&cfg.DSN, "d", cfg.DSN, "server data source name")
	flag.Parse()

	// Read environment variables.
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		log.Fatalf("failed to read environment variables: %v", err)
	}

	return &cfg
}
