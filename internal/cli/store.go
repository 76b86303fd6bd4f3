package cli

import (
	"github.com/tbourn/go-faucet-backend/internal/config"
	"github.com/tbourn/go-faucet-backend/internal/repo"
	"github.com/tbourn/go-faucet-backend/internal/services"
)

// openStore opens the cooldown store selected by cfg.Driver. SQL stores get
// query tracing and the claims schema. The returned close func is never nil.
func openStore(cfg config.StoreConfig) (services.CooldownStore, func() error, error) {
	if cfg.Driver == config.DriverBolt {
		s, err := repo.OpenBolt(cfg.Path)
		if err != nil {
			return nil, func() error { return nil }, err
		}
		return s, s.Close, nil
	}

	db, err := repo.Open(cfg)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	closeDB := func() error { return repo.Close(db) }
	if err := repo.EnableTracing(db); err != nil {
		_ = closeDB()
		return nil, func() error { return nil }, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		_ = closeDB()
		return nil, func() error { return nil }, err
	}
	return repo.NewClaimStore(db), closeDB, nil
}
