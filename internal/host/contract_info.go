package host

import (
	"context"
	"fmt"

	"fxrelay/internal/storage"
)

type ContractVersion struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

var contractInfo = storage.NewItem[ContractVersion]("contract_info")

// SetContractVersion records which code a node runs. Called from Instantiate.
func SetContractVersion(ctx context.Context, s storage.Store, name, version string) error {
	if err := contractInfo.Save(ctx, s, ContractVersion{Contract: name, Version: version}); err != nil {
		return fmt.Errorf("failed to set contract version: %w", err)
	}
	return nil
}

func GetContractVersion(ctx context.Context, s storage.Store) (ContractVersion, error) {
	return contractInfo.Load(ctx, s)
}
