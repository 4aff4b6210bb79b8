// Package config loads assetd configuration with Viper from YAML, JSON or
// TOML files, with ASSETD_ environment overrides and hot-reloading.
//
// Sections:
//   - app_name, app_version
//   - server: HTTP listener and gin mode
//   - logger: level, format, output and desensitization
//   - data: mongodb, redis and rabbitmq connections
//   - storage: payload store, gridfs or an oss provider
//   - asset: wait polling, default queue, resolution cache, collections
//   - worker: local job pool
//   - scheduler: cron entries that enqueue jobs
//
// # Configuration Format
//
//	server:
//	  port: 8080
//	  mode: release
//
//	data:
//	  mongodb:
//	    uri: mongodb://localhost:27017
//	    database: assets
//	  redis:
//	    addr: localhost:6379
//
//	storage:
//	  provider: s3
//	  bucket: media
//	  region: eu-central-1
//
//	asset:
//	  poll_interval: 150ms
//	  wait_timeout: 5m
//
//	scheduler:
//	  - spec: "@every 1h"
//	    queue: maintenance
//	    job: cleanup
//
// # Environment Variables
//
// Keys map to upper case with underscores:
//
//	export ASSETD_SERVER_PORT=9000
//	export ASSETD_DATA_MONGODB_URI=mongodb://db:27017
//
// # Hot Reloading
//
//	config.Watch(func(cfg *config.Config) {
//	    logger.Info(ctx, "configuration reloaded")
//	})
package config
