package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/labledger/adapters/deployments"
	"github.com/layer-3/labledger/adapters/events"
	"github.com/layer-3/labledger/adapters/registry"
	"github.com/layer-3/labledger/adapters/store"
	"github.com/layer-3/labledger/adapters/tokenizer"
	"github.com/layer-3/labledger/config"
	"github.com/layer-3/labledger/internal/eth"
	"github.com/layer-3/labledger/internal/logging"
	"github.com/layer-3/labledger/ledger"
	"github.com/layer-3/labledger/ports"
	"github.com/layer-3/labledger/service"
	"github.com/layer-3/labledger/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
)

var serveFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Usage: "address to listen on for API (overrides LISTEN_ADDR)",
	},
	&cli.StringFlag{
		Name:  "ledger-mode",
		Usage: "'local' for the in-process ledger or 'rpc' for a JSON-RPC node (overrides LEDGER_MODE)",
	},
	&cli.StringFlag{
		Name:  "rpc-addr",
		Usage: "address to connect to RPC (overrides RPC_URL)",
	},
	&cli.StringFlag{
		Name:  "deployments-file",
		Usage: "deployment descriptor written by the deploy script (overrides DEPLOYMENTS_FILE)",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Usage: "generate a uuid and add to all log messages",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "labledger",
		Usage: "Identity and event registry gateway with wallet sign-in",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP gateway",
				Flags:  serveFlags,
				Action: serve,
			},
			{
				Name:      "sign",
				Usage:     "personal-sign a challenge with a wallet key",
				ArgsUsage: "<challenge>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "key",
						EnvVars:  []string{"WALLET_KEY"},
						Required: true,
						Usage:    "hex private key",
					},
				},
				Action: sign,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(cCtx *cli.Context) (*config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}

	if cCtx.IsSet("listen-addr") {
		cfg.ListenAddr = cCtx.String("listen-addr")
	}
	if cCtx.IsSet("ledger-mode") {
		cfg.LedgerMode = cCtx.String("ledger-mode")
	}
	if cCtx.IsSet("rpc-addr") {
		cfg.RPCURL = cCtx.String("rpc-addr")
	}
	if cCtx.IsSet("deployments-file") {
		cfg.DeploymentsFile = cCtx.String("deployments-file")
	}
	cfg.LogJSON = cfg.LogJSON || cCtx.Bool("log-json")
	cfg.LogDebug = cfg.LogDebug || cCtx.Bool("log-debug")
	cfg.LogUID = cfg.LogUID || cCtx.Bool("log-uid")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(cCtx *cli.Context) error {
	cfg, err := loadConfig(cCtx)
	if err != nil {
		return err
	}

	logger := logging.SetupLogger(&logging.Opts{
		Debug:   cfg.LogDebug,
		JSON:    cfg.LogJSON,
		UID:     cfg.LogUID,
		Service: cfg.LogService,
		Version: logging.Version,
	})

	reg, source, err := setupRegistry(cCtx.Context, cfg, logger)
	if err != nil {
		logger.Error("Failed to set up registry", "err", err)
		return err
	}

	var (
		challenges ports.ChallengeStore
		publisher  message.Publisher
	)
	wmLogger := watermill.NewStdLogger(cfg.LogDebug, false)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		challenges = store.NewRedisStore(redisClient, store.WithTTL(cfg.ChallengeTTL))
		publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, wmLogger)
		if err != nil {
			return fmt.Errorf("failed to create redis publisher: %w", err)
		}
		logger.Info("Using redis for challenges and notifications")
	} else {
		challenges = store.NewMemoryStore(store.WithTTL(cfg.ChallengeTTL))
		publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		logger.Info("Using in-memory challenges and notifications")
	}
	defer publisher.Close()

	authService := service.NewAuthService(
		challenges,
		tokenizer.NewJWTTokenizer([]byte(cfg.JWTSecret)),
		cfg.AdminAddresses,
		service.WithSessionTTL(cfg.SessionTTL),
		service.WithAuthLogger(logger),
	)
	registryService := service.NewRegistryService(reg, source,
		service.WithNotifications(events.NewWatermillPublisher(publisher)),
		service.WithRegistryLogger(logger),
		service.RequireIdentityForEvents(cfg.RequireIdentityForEvents),
	)

	gin.SetMode(gin.ReleaseMode)
	router := http.SetupRouter(authService, registryService)

	srv := http.NewServer(&http.ServerConfig{
		ListenAddr:               cfg.ListenAddr,
		Log:                      logger,
		DrainDuration:            cfg.DrainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             60 * time.Second,
	}, router)
	srv.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	<-exit

	srv.Shutdown()
	return nil
}

func setupRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Registry, ports.DeploymentSource, error) {
	if cfg.LedgerMode == config.LedgerLocal {
		local := registry.NewLocalRegistry(ledger.NewMachine(), cfg.ChainID)
		logger.Info("Using in-process ledger", "chainId", cfg.ChainID)
		return local, local, nil
	}

	logger.Info("Connecting to Ethereum RPC", "address", cfg.RPCURL)
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		logger.Warn("Failed to query chain id, using configured value", "chainId", cfg.ChainID, "err", err)
		chainID = new(big.Int).SetUint64(cfg.ChainID)
	}

	keys, err := registry.NewKeyRing(chainID, cfg.WalletKeys)
	if err != nil {
		return nil, nil, err
	}
	for _, addr := range keys.Addresses() {
		logger.Info("Wallet key loaded", "address", addr.Hex())
	}

	source := deployments.NewFileLoader(cfg.DeploymentsFile, logger)
	return registry.NewOnchainRegistry(client, source, keys), source, nil
}

func sign(cCtx *cli.Context) error {
	challenge := cCtx.Args().First()
	if challenge == "" {
		return fmt.Errorf("challenge text is required")
	}

	key, err := eth.ParsePrivateKey(cCtx.String("key"))
	if err != nil {
		return err
	}
	signature, err := eth.SignText(key, challenge)
	if err != nil {
		return err
	}

	fmt.Fprintf(cCtx.App.Writer, "address:   %s\nsignature: %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex(), signature)
	return nil
}
