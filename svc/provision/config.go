package provision

import "time"

// Config bounds provisioning and upgrade work.
type Config struct {
	// ProvisionTimeout bounds one Provision call, lock wait included.
	ProvisionTimeout time.Duration `env:"PROVISION_TIMEOUT" envDefault:"2m"`
	// UpgradeTimeout bounds the upgrade of a single partition.
	UpgradeTimeout time.Duration `env:"UPGRADE_TIMEOUT" envDefault:"5m"`
	// UpgradeParallelism is how many partitions UpgradeAll migrates at once.
	UpgradeParallelism int `env:"UPGRADE_PARALLELISM" envDefault:"4"`
}

func (c Config) withDefaults() Config {
	if c.ProvisionTimeout <= 0 {
		c.ProvisionTimeout = 2 * time.Minute
	}
	if c.UpgradeTimeout <= 0 {
		c.UpgradeTimeout = 5 * time.Minute
	}
	if c.UpgradeParallelism <= 0 {
		c.UpgradeParallelism = 4
	}
	return c
}
