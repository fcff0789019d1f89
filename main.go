package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/JuanCrzp/ClientCare/dao"
	"github.com/JuanCrzp/ClientCare/internal/tgclient"
	"github.com/JuanCrzp/ClientCare/internal/waclient"
	"github.com/JuanCrzp/ClientCare/model"
	"github.com/JuanCrzp/ClientCare/nlu"
	"github.com/JuanCrzp/ClientCare/route"
	"github.com/JuanCrzp/ClientCare/rules"
	"github.com/JuanCrzp/ClientCare/service"
)

func main() {
	log := newLogger(env("LOG_MODE", "dev"))
	defer func() { _ = log.Sync() }()
	sugar := log.Sugar()

	provider, err := rules.NewProvider(env("RULES_PATH", "config/rules.yaml"))
	if err != nil {
		sugar.Fatalw("rules load failed", "err", err)
	}

	states, convs, tickets := buildStores(sugar)

	var bayes *nlu.BayesNLU
	defaults := provider.RulesFor("")
	if strings.EqualFold(defaults.NLU.Provider, "ml") {
		bayes = nlu.NewBayesNLU(defaults.NLU, env("DATA_DIR", "data"), sugar)
	}

	engine := service.NewEngine(provider, states, convs, tickets, bayes, sugar)

	wa := waclient.NewClient(
		os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		sugar,
	)

	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		tg := tgclient.NewClient(token, sugar)
		go tg.Run(context.Background(), func(ctx context.Context, in model.Inbound) model.Reply {
			return engine.ProcessMessage(ctx, in)
		})
		sugar.Infow("telegram polling started")
	}

	r := gin.Default()
	route.Register(r, route.Deps{
		Engine:        engine,
		Rules:         provider,
		Bayes:         bayes,
		WhatsApp:      wa,
		WAVerifyToken: os.Getenv("WHATSAPP_VERIFY_TOKEN"),
		Log:           sugar,
	})

	addr := env("ADDR", ":8082")
	sugar.Infow("server starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		sugar.Fatalw("server stopped", "err", err)
	}
}

// buildStores wires Redis-backed stores when REDIS_ADDR is set, in-memory
// ones otherwise (useful for local runs and demos).
func buildStores(sugar *zap.SugaredLogger) (service.StateStore, service.ConversationStore, service.TicketStore) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		sugar.Infow("no REDIS_ADDR configured, using in-memory stores")
		return dao.NewMemoryStateStore(), dao.NewMemoryConversationStore(), dao.NewMemoryTicketStore()
	}
	db, _ := strconv.Atoi(env("REDIS_DB", "0"))
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		sugar.Fatalw("redis ping failed", "addr", addr, "err", err)
	}
	ttl := 30 * 24 * time.Hour
	return dao.NewRedisStateStore(client, ttl),
		dao.NewRedisConversationStore(client, ttl),
		dao.NewRedisTicketStore(client)
}

func newLogger(mode string) *zap.Logger {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
