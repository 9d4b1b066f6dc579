package tests

import (
	"github.com/staex-io/did-provisioner/internal/config"
)

func GetConfig() *config.Config {
	return config.Default()
}
