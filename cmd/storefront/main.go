package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jewelcraft/storefront/config"
	"github.com/jewelcraft/storefront/internal/adminapi"
	"github.com/jewelcraft/storefront/internal/app"
	"github.com/jewelcraft/storefront/internal/webserver"
)

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	dev      = flag.Bool("dev", false, "development mode")
	initdb   = flag.Bool("initdb", false, "drop all tables, migrate and exit")
	printCfg = flag.Bool("printcfg", false, "print effective config and exit")
)

var version = "develop"

func main() {
	flag.Parse()

	if *h {
		flag.Usage()
		return
	}
	if *showVer {
		fmt.Println(version)
		return
	}

	cfg := config.LoadConfig(*conffile)
	if *dev {
		cfg.System.Debug = true
		cfg.Logger.Mode = "development"
	}
	if *printCfg {
		bs, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(bs))
		return
	}
	cfg.InitDirs()

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.DropAll()
		if err := application.MigrateDB(true); err != nil {
			zap.S().Fatal(err)
		}
		return
	}

	webserver.Init(application)
	adminapi.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(webserver.Listen)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.S().Info("shutting down storefront api")
		return webserver.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zap.S().Errorf("storefront stopped: %v", err)
	}
}
