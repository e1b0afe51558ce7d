// Package mongo connects to the MongoDB document store that holds orders,
// posts and platform credentials.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//	db, err := mongo.Open(ctx, cfg)
//	orders := order.NewMongoRepository(db)
//
// Healthcheck plugs into httpserver readiness probes.
package mongo
