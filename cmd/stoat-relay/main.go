// Command stoat-relay logs in to the chat platform and mirrors every event it receives
// onto redis pub/sub, or keeps them in process when no redis address is configured.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	stoat "stoat-client"
	"stoat-client/internal/hub"
	"stoat-client/internal/logging"
)

type ConfigFile struct {
	Token         string
	TokenType     string
	APIURL        string
	LogLevel      string
	LogFile       string
	RedisAddress  string
	RedisPassword string
	RedisDB       int
	ChannelPrefix string
}

func readConfigFile(path string) (ConfigFile, error) {
	var cfg ConfigFile

	configFile, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer configFile.Close()

	bytes, err := io.ReadAll(configFile)
	if err != nil {
		return cfg, err
	}

	err = json.Unmarshal(bytes, &cfg)
	if err != nil {
		return cfg, err
	}

	if cfg.Token == "" {
		return cfg, fmt.Errorf("%s: Token is empty", path)
	}
	if cfg.ChannelPrefix == "" {
		cfg.ChannelPrefix = "stoat:"
	}
	return cfg, nil
}

func setupLogger(cfg ConfigFile) (*zap.Logger, error) {
	outputPaths := []string{"stdout"}
	if cfg.LogFile != "" {
		outputPaths = append(outputPaths, cfg.LogFile)
	}
	return logging.New(cfg.LogLevel, outputPaths...)
}

func setupRedis(cfg ConfigFile) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		rdb.Close()
		return nil, err
	}

	return rdb, nil
}

func tokenType(name string) (stoat.TokenType, error) {
	switch name {
	case "", "user":
		return stoat.UserToken, nil
	case "bot":
		return stoat.BotToken, nil
	}
	return 0, fmt.Errorf("unknown token type %q", name)
}

func main() {
	configPath := flag.String("config", "config.json", "path of the config file")
	flag.Parse()

	fmt.Println("Reading config file...")
	cfg, err := readConfigFile(*configPath)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	fmt.Println("Setting up logger...")
	logger, err := setupLogger(cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	typ, err := tokenType(cfg.TokenType)
	if err != nil {
		sugar.Fatal(err)
	}

	var publisher hub.Publisher
	if cfg.RedisAddress != "" {
		fmt.Println("Connecting to redis...")
		redisClient, err := setupRedis(cfg)
		if err != nil {
			sugar.Fatal(err)
		}
		defer redisClient.Close()
		publisher = redisClient
	} else {
		sugar.Warn("No redis address configured, events stay in process")
	}

	client, err := stoat.New(stoat.Config{
		APIURL:    cfg.APIURL,
		Logger:    logger,
		TokenType: typ,
	})
	if err != nil {
		sugar.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mirror := hub.New(sugar.Named("hub"), publisher, cfg.ChannelPrefix)
	cancelMirror := mirror.Mirror(ctx, client.Subscribe)
	defer cancelMirror()

	fmt.Println("Logging in...")
	err = client.LoginWithToken(ctx, cfg.Token)
	if err != nil {
		sugar.Fatal(err)
	}

	fmt.Println("Connecting to event stream...")
	err = client.Start(ctx)
	if err != nil {
		sugar.Fatal(err)
	}

	fmt.Printf("Relaying events as %s\n", client.Self().Username)

	<-ctx.Done()

	fmt.Println("Shutting down...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = client.Stop(stopCtx)
	if err != nil {
		sugar.Error(err)
	}
}
