package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/layer-3/garuda/adapters/balance"
	"github.com/layer-3/garuda/adapters/events"
	"github.com/layer-3/garuda/adapters/provider"
	"github.com/layer-3/garuda/adapters/store"
	"github.com/layer-3/garuda/adapters/tokenizer"
	"github.com/layer-3/garuda/config"
	"github.com/layer-3/garuda/metrics"
	"github.com/layer-3/garuda/ports"
	"github.com/layer-3/garuda/service"
	transport "github.com/layer-3/garuda/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Generate signing keys (you would normally load these from somewhere
	// secure). The wallet key backs the development keyring provider.
	tokenKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		log.Fatalf("Failed to generate token key: %v", err)
	}
	walletKey, err := gethcrypto.GenerateKey()
	if err != nil {
		log.Fatalf("Failed to generate wallet key: %v", err)
	}

	logger := watermill.NewStdLogger(false, false)

	var (
		sessions   ports.SessionStore
		identities ports.IdentityStore
		publisher  message.Publisher
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		client := redis.NewClient(opts)

		sessions = store.NewRedisSessionStore(client)
		identities = store.NewRedisIdentityStore(client)
		publisher, err = redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client},
			logger,
		)
		if err != nil {
			log.Fatalf("Failed to create Redis publisher: %v", err)
		}
	} else {
		sessions = store.NewMemorySessionStore()
		identities = store.NewMemoryIdentityStore()
		publisher = gochannel.NewGoChannel(gochannel.Config{}, logger)
	}

	walletProvider := provider.NewKeyringProvider(walletKey)
	nonces := store.NewMemoryNonceStore()
	eventPub := events.NewWatermillPublisher(publisher)
	m := metrics.New()

	var refresher *service.BalanceRefresher
	if cfg.EthRPCURL != "" {
		source, err := balance.NewEthBalanceSource(cfg.EthRPCURL)
		if err != nil {
			log.Fatalf("Failed to create balance source: %v", err)
		}
		refresher = service.NewBalanceRefresher(source, logger)
	}

	protocol := service.NewSessionProtocol(walletProvider, sessions, nonces)
	coordinator := service.NewReconnectCoordinator(protocol, walletProvider, refresher, m, logger)
	resolver := service.NewIdentityResolver(identities, store.NewMemoryWalletRegistry(), eventPub, m, logger)

	var passwordConnector *provider.PasswordConnector
	users, err := cfg.Users()
	if err != nil {
		log.Fatalf("Failed to parse users: %v", err)
	}
	if len(users) > 0 {
		passwordConnector = provider.NewPasswordConnector(provider.StaticPasswordStore(users))
	}

	var oauthConnector *provider.OAuthConnector
	if cfg.OAuthEnabled() {
		oauthConnector = provider.NewOAuthConnector(&oauth2.Config{
			ClientID:     cfg.OAuthClientID,
			ClientSecret: cfg.OAuthClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.OAuthAuthURL,
				TokenURL: cfg.OAuthTokenURL,
			},
			Scopes: []string{"openid", "email", "profile"},
		}, cfg.OAuthUserInfoURL)
	}

	tok := tokenizer.NewJWTTokenizer(tokenKey)
	handlers := transport.NewAuthHandlers(coordinator, protocol, resolver, passwordConnector, oauthConnector, tok, identities, sessions, eventPub)
	router := transport.SetupRouter(handlers, tok)

	srv := &http.Server{Addr: cfg.Addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
