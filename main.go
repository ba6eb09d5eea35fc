// Package main is the entry point for the voicepages application.
package main

import (
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/voicepages/voicepages/app"
	"github.com/voicepages/voicepages/cmd"
	"github.com/voicepages/voicepages/config"
	"github.com/voicepages/voicepages/internal/cache"
	"github.com/voicepages/voicepages/internal/sync"
	"github.com/voicepages/voicepages/key"
	"github.com/voicepages/voicepages/log"
	"github.com/voicepages/voicepages/where"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go cache.CollectGarbage(where.Audio(), cache.TTL())
	if viper.GetBool(key.BookmarkQueueFailed) {
		sync.ReconcileFailures(app.Outbox(), app.NewClient(), time.Minute)
	}

	cmd.Execute()
}
