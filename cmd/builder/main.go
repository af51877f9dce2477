package main

import (
	"flag"

	da "github.com/F0rt1s/routing/pkg/datastructure"
	"github.com/F0rt1s/routing/pkg/logger"
	"github.com/F0rt1s/routing/pkg/osmparser"
	"go.uber.org/zap"
)

var (
	mapFile          = flag.String("map", "./data/map.osm.pbf", "openstreetmap pbf extract")
	networkFile      = flag.String("network", "./data/network.graph", "output network file")
	profileFile      = flag.String("profiles", "./data/edge_profiles.graph", "output edge-profile file")
	restrictionsFile = flag.String("restrictions", "./data/restrictions.graph", "output restrictions file")
)

func main() {
	flag.Parse()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}

	parser := osmparser.NewOsmParser()
	result, err := parser.Parse(*mapFile, log)
	if err != nil {
		log.Fatal("failed parsing openstreetmap extract", zap.Error(err))
	}

	if err := result.Network.WriteNetwork(*networkFile); err != nil {
		log.Fatal("failed writing network", zap.Error(err))
	}
	if err := result.Table.Write(*profileFile); err != nil {
		log.Fatal("failed writing edge profiles", zap.Error(err))
	}
	if err := da.WriteRestrictions(*restrictionsFile, result.Restrictions); err != nil {
		log.Fatal("failed writing restrictions", zap.Error(err))
	}

	log.Info("network build done",
		zap.String("network", *networkFile),
		zap.Int("vertices", result.Network.VertexCount()),
		zap.Int("edges", result.Network.EdgeCount()))
}
