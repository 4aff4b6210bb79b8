package config

import (
	"github.com/spf13/viper"

	"github.com/stemyke/node-backend-sub000/concurrency/worker"
)

func getWorkerConfig(v *viper.Viper) *worker.Config {
	d := worker.DefaultConfig()
	return &worker.Config{
		MaxWorkers:  getIntOrDefault(v, "worker.max_workers", d.MaxWorkers),
		QueueSize:   getIntOrDefault(v, "worker.queue_size", d.QueueSize),
		TaskTimeout: getDurationOrDefault(v, "worker.task_timeout", d.TaskTimeout),
	}
}
