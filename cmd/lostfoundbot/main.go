package main

import (
	"fmt"
	"log"

	"github.com/SUMERGeg/lostfound/bot"
	corecmd "github.com/SUMERGeg/lostfound/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config/config.yml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			cfg, ok := carrier.(*bot.Config)
			if !ok {
				return nil, fmt.Errorf("unexpected config type %T", carrier)
			}
			return bot.Bootstrap(cfg)
		},
	})
	if err != nil {
		log.Fatalf("bot exited: %v", err)
	}
}
