package vault

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goran-ethernal/LoanIndexor/pkg/node"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// tokenAmount is one parsed "<amount>@<symbol>" pair.
type tokenAmount struct {
	amount decimal.Decimal
	symbol string
}

// parseTokenAmount splits one "<amount>@<symbol>" entry.
func parseTokenAmount(raw string) (tokenAmount, error) {
	const pairParts = 2

	parts := strings.SplitN(raw, "@", pairParts)
	if len(parts) != pairParts || parts[0] == "" || parts[1] == "" {
		return tokenAmount{}, fmt.Errorf("malformed token amount %q", raw)
	}

	amount, err := decimal.NewFromString(parts[0])
	if err != nil {
		return tokenAmount{}, fmt.Errorf("malformed amount in %q: %w", raw, err)
	}

	return tokenAmount{amount: amount, symbol: parts[1]}, nil
}

// amountMapper resolves token metadata and active prices once per request
// and maps raw amount lists to enriched views.
type amountMapper struct {
	tokens map[string]node.RawToken // by symbol
	prices map[string]string        // by symbol, decimal string
}

// newAmountMapper batch-resolves metadata for all referenced symbols and
// fetches their active prices concurrently. An unresolvable symbol is a
// data-integrity mismatch between chain state and the token registry.
func (s *Service) newAmountMapper(ctx context.Context, symbols []string) (*amountMapper, error) {
	all, err := s.node.ListTokens(ctx)
	if err != nil {
		return nil, badRequestf("unable to list tokens: %v", err)
	}

	bySymbol := make(map[string]node.RawToken, len(all))
	for _, token := range all {
		bySymbol[token.Symbol] = token
	}

	am := &amountMapper{
		tokens: make(map[string]node.RawToken, len(symbols)),
		prices: make(map[string]string, len(symbols)),
	}

	unique := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if _, ok := am.tokens[symbol]; ok {
			continue
		}

		token, ok := bySymbol[symbol]
		if !ok {
			return nil, conflictf("unable to resolve token with symbol %s", symbol)
		}

		am.tokens[symbol] = token
		unique = append(unique, symbol)
	}

	// Price lookups share no state and join before returning, dispatch them
	// concurrently. A token without a feed simply has no active price.
	var mu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	for _, symbol := range unique {
		group.Go(func() error {
			price, err := s.node.GetActivePrice(groupCtx, symbol+"-USD")
			if err != nil || price == nil || price.Active.IsZero() {
				return nil //nolint:nilerr
			}

			mu.Lock()
			am.prices[symbol] = price.Active.String()
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return am, nil
}

// mapAmounts maps a raw amount list to enriched token amounts, ordered
// ascending by numeric token id.
func (am *amountMapper) mapAmounts(raw []string) ([]TokenAmount, error) {
	mapped := make([]TokenAmount, 0, len(raw))

	for _, entry := range raw {
		amount, err := am.mapAmount(entry)
		if err != nil {
			return nil, err
		}

		mapped = append(mapped, *amount)
	}

	sort.Slice(mapped, func(i, j int) bool {
		return lessTokenID(mapped[i].ID, mapped[j].ID)
	})

	return mapped, nil
}

// mapAmount maps a single "<amount>@<symbol>" entry.
func (am *amountMapper) mapAmount(raw string) (*TokenAmount, error) {
	pair, err := parseTokenAmount(raw)
	if err != nil {
		return nil, badRequestf("%v", err)
	}

	token, ok := am.tokens[pair.symbol]
	if !ok {
		return nil, conflictf("unable to resolve token with symbol %s", pair.symbol)
	}

	return &TokenAmount{
		ID:            token.ID,
		Amount:        pair.amount.String(),
		Symbol:        token.Symbol,
		SymbolKey:     token.SymbolKey,
		DisplaySymbol: token.DisplaySymbol,
		ActivePrice:   am.prices[pair.symbol],
	}, nil
}

// lessTokenID orders token ids numerically. Ids that do not parse sort
// after numeric ones, by string comparison among themselves.
func lessTokenID(a, b string) bool {
	na, errA := strconv.ParseUint(a, 10, 64)
	nb, errB := strconv.ParseUint(b, 10, 64)

	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	default:
		return a < b
	}
}

// collectSymbols gathers the distinct symbols referenced by raw amount lists.
func collectSymbols(lists ...[]string) []string {
	seen := make(map[string]struct{})
	symbols := make([]string, 0)

	for _, list := range lists {
		for _, entry := range list {
			pair, err := parseTokenAmount(entry)
			if err != nil {
				continue
			}

			if _, ok := seen[pair.symbol]; ok {
				continue
			}

			seen[pair.symbol] = struct{}{}
			symbols = append(symbols, pair.symbol)
		}
	}

	return symbols
}
