package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/filetrade/internal/flagx"
	"github.com/dmitrijs2005/filetrade/internal/timex"
)

// JsonConfig is the on-disk shape of the daemon config. Pointer fields
// distinguish "absent" from zero so a file only overrides what it names.
type JsonConfig struct {
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	SecretKey                    *string         `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	LedgerOwner                  *string         `json:"ledger_owner"`
	LedgerOwnerPassword          *string         `json:"ledger_owner_password"`
	LedgerFee                    *uint64         `json:"ledger_fee"`
	FaucetEnabled                *bool           `json:"faucet_enabled"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson overlays values from the JSON file named by -c or -config.
// Without either flag nothing is loaded. An unreadable or invalid file
// panics.
func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	setIf(&config.LedgerOwner, c.LedgerOwner)
	setIf(&config.LedgerOwnerPassword, c.LedgerOwnerPassword)
	setIf(&config.LedgerFee, c.LedgerFee)
	setIf(&config.FaucetEnabled, c.FaucetEnabled)
	setIf(&config.LogLevel, c.LogLevel)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
