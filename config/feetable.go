package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/konozy/ordersync/money"
)

// feeTableFile mirrors the on-disk shape of the frozen fee/account table.
// It is unmarshaled once at startup via viper and converted into the
// immutable money.FeeTable value that every component shares.
type feeTableFile struct {
	Mappings map[string]struct {
		AccountID         string `mapstructure:"account_id"`
		AnalyticAccountID string `mapstructure:"analytic_account_id"`
	} `mapstructure:"mappings"`
	PrincipalAccount struct {
		AccountID         string `mapstructure:"account_id"`
		AnalyticAccountID string `mapstructure:"analytic_account_id"`
	} `mapstructure:"principal_account"`
	CommissionAccount struct {
		AccountID         string `mapstructure:"account_id"`
		AnalyticAccountID string `mapstructure:"analytic_account_id"`
	} `mapstructure:"commission_account"`
}

// LoadFeeTable reads the fee->account mapping table from path (YAML or
// JSON, anything viper supports) and freezes it into a money.FeeTable.
// This table is authoritative: every known fee kind must be present or
// loading fails with a ConfigurationError-class error.
func LoadFeeTable(path string) (money.FeeTable, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return money.FeeTable{}, fmt.Errorf("config: reading fee table %s: %w", path, err)
	}

	var raw feeTableFile
	if err := v.Unmarshal(&raw); err != nil {
		return money.FeeTable{}, fmt.Errorf("config: parsing fee table %s: %w", path, err)
	}

	mappings := make(map[money.FeeKind]money.AccountMapping, len(raw.Mappings))
	for kind, m := range raw.Mappings {
		mappings[money.FeeKind(kind)] = money.AccountMapping{
			AccountID:         m.AccountID,
			AnalyticAccountID: m.AnalyticAccountID,
		}
	}

	table, err := money.NewFeeTable(mappings,
		money.AccountMapping{AccountID: raw.PrincipalAccount.AccountID, AnalyticAccountID: raw.PrincipalAccount.AnalyticAccountID},
		money.AccountMapping{AccountID: raw.CommissionAccount.AccountID, AnalyticAccountID: raw.CommissionAccount.AnalyticAccountID},
	)
	if err != nil {
		return money.FeeTable{}, fmt.Errorf("config: %w", err)
	}
	return table, nil
}
