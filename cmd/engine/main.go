package main

import (
	"context"

	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/engine"
	"github.com/F0rt1s/routing/pkg/http"
	"github.com/F0rt1s/routing/pkg/http/usecases"
	"github.com/F0rt1s/routing/pkg/logger"
	"github.com/F0rt1s/routing/pkg/profiles"
	"github.com/F0rt1s/routing/pkg/util"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	if err := util.ReadConfig(); err != nil {
		log.Warn("no config file found, using defaults", zap.Error(err))
	}
	viper.SetDefault("NETWORK_FILE", "./data/network.graph")
	viper.SetDefault("EDGE_PROFILE_FILE", "./data/edge_profiles.graph")
	viper.SetDefault("RESTRICTIONS_FILE", "./data/restrictions.graph")
	viper.SetDefault("SEARCH_RADIUS_METER", 50.0)
	viper.SetDefault("VERIFY_ALL_STOPPABLE", false)
	viper.SetDefault("USE_RATE_LIMIT", false)

	network, err := da.ReadNetwork(viper.GetString("NETWORK_FILE"))
	if err != nil {
		log.Fatal("failed reading network", zap.Error(err))
	}
	table, err := profiles.ReadEdgeProfileTable(viper.GetString("EDGE_PROFILE_FILE"))
	if err != nil {
		log.Fatal("failed reading edge profiles", zap.Error(err))
	}

	car := profiles.NewCar(table)
	bicycle := profiles.NewBicycle(table)
	pedestrian := profiles.NewPedestrian(table)
	shortest := profiles.NewShortest(table)

	cache := profiles.NewFactorCache(table, car, bicycle, pedestrian, shortest)

	eng := engine.New(network, table, log, engine.Config{
		VerifyAllStoppable: viper.GetBool("VERIFY_ALL_STOPPABLE"),
		MaxSearchDistance:  viper.GetFloat64("SEARCH_RADIUS_METER"),
		FactorCache:        cache,
	}, car, bicycle, pedestrian, shortest)

	restrictions, err := da.ReadRestrictions(viper.GetString("RESTRICTIONS_FILE"))
	if err != nil {
		log.Warn("no restrictions file found", zap.Error(err))
	} else {
		for name, seqs := range restrictions {
			eng.AddRestrictions(name, da.NewRestrictionIndex(seqs))
		}
	}

	routingService := usecases.NewRoutingService(log, eng,
		viper.GetFloat64("SEARCH_RADIUS_METER"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := http.NewServer(log)
	if _, err := api.Use(ctx, log, viper.GetBool("USE_RATE_LIMIT"), routingService); err != nil {
		log.Fatal("failed starting API server", zap.Error(err))
	}

	sig := http.GracefulShutdown()
	log.Info("routing engine server stopped", zap.String("signal", sig.String()))
}
