package vault

import (
	"context"
	"strconv"

	"github.com/goran-ethernal/LoanIndexor/pkg/node"
)

// mapVault builds the API view for one raw vault. Vaults the node reports
// as in liquidation are routed to the auction mapper, everything else
// produces the active-vault view.
func (s *Service) mapVault(ctx context.Context, raw *node.RawVault) (View, error) {
	if raw.InLiquidation() {
		return s.mapLiquidated(ctx, raw)
	}

	return s.mapActive(ctx, raw)
}

func (s *Service) mapActive(ctx context.Context, raw *node.RawVault) (*LoanVaultActive, error) {
	scheme, err := s.schemeView(raw.LoanSchemeID)
	if err != nil {
		return nil, err
	}

	am, err := s.newAmountMapper(ctx, collectSymbols(raw.CollateralAmounts, raw.LoanAmounts, raw.InterestAmounts))
	if err != nil {
		return nil, err
	}

	collateral, err := am.mapAmounts(raw.CollateralAmounts)
	if err != nil {
		return nil, err
	}

	loans, err := am.mapAmounts(raw.LoanAmounts)
	if err != nil {
		return nil, err
	}

	interest, err := am.mapAmounts(raw.InterestAmounts)
	if err != nil {
		return nil, err
	}

	return &LoanVaultActive{
		VaultID:      raw.VaultID,
		LoanScheme:   *scheme,
		OwnerAddress: raw.OwnerAddress,
		State:        viewState(raw.State),

		InformativeRatio: raw.InformativeRatio.String(),
		CollateralRatio:  strconv.FormatInt(raw.CollateralRatio, 10),
		CollateralValue:  raw.CollateralValue.String(),
		LoanValue:        raw.LoanValue.String(),
		InterestValue:    raw.InterestValue.String(),

		CollateralAmounts: collateral,
		LoanAmounts:       loans,
		InterestAmounts:   interest,
	}, nil
}

func (s *Service) mapLiquidated(ctx context.Context, raw *node.RawVault) (*LoanVaultLiquidated, error) {
	scheme, err := s.schemeView(raw.LoanSchemeID)
	if err != nil {
		return nil, err
	}

	symbolLists := make([][]string, 0, len(raw.Batches)*2)
	for _, batch := range raw.Batches {
		symbolLists = append(symbolLists, batch.Collaterals)
		if batch.Loan != "" {
			symbolLists = append(symbolLists, []string{batch.Loan})
		}
	}

	am, err := s.newAmountMapper(ctx, collectSymbols(symbolLists...))
	if err != nil {
		return nil, err
	}

	batches := make([]LiquidationBatch, 0, len(raw.Batches))
	for _, batch := range raw.Batches {
		collaterals, err := am.mapAmounts(batch.Collaterals)
		if err != nil {
			return nil, err
		}

		mapped := LiquidationBatch{
			Index:       batch.Index,
			Collaterals: collaterals,
		}

		// A batch carries exactly one loan entry, leave it absent if the
		// node ever supplies none
		if batch.Loan != "" {
			loan, err := am.mapAmount(batch.Loan)
			if err != nil {
				return nil, err
			}

			mapped.Loan = loan
		}

		batches = append(batches, mapped)
	}

	return &LoanVaultLiquidated{
		VaultID:      raw.VaultID,
		LoanScheme:   *scheme,
		OwnerAddress: raw.OwnerAddress,
		State:        StateInLiquidation,

		BatchCount:         raw.BatchCount,
		LiquidationHeight:  raw.LiquidationHeight,
		LiquidationPenalty: raw.LiquidationPenalty.String(),

		Batches: batches,
	}, nil
}

// schemeView resolves a scheme from the local read model and annotates it
// with whether it is the system default.
func (s *Service) schemeView(id string) (*LoanSchemeView, error) {
	scheme, err := s.schemes.CurrentScheme(id)
	if err != nil {
		return nil, err
	}
	if scheme == nil {
		return nil, notFoundf("unable to find loan scheme %s", id)
	}

	def, err := s.schemes.CurrentScheme(s.defaultSchemeID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, notFoundf("unable to find default loan scheme %s", s.defaultSchemeID)
	}

	return &LoanSchemeView{
		ID:           scheme.ID,
		MinColRatio:  strconv.FormatInt(scheme.MinCollateralRatio, 10),
		InterestRate: scheme.InterestRate,
		Default:      scheme.ID == def.ID,
	}, nil
}
