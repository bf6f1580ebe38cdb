package validators

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrSymbolEmpty   = errors.New("stock symbol is required")
	ErrSymbolInvalid = errors.New("invalid stock symbol provided")
	ErrTooManyStocks = errors.New("at most 5 symbols can be compared at once")
)

var symbolRe = regexp.MustCompile(`^[A-Z][A-Z0-9.\-:]{0,14}$`)

// SymbolsValidator normalizes the main symbol plus the comma separated
// comparison list into one upper cased, de-duplicated slice. Only a bad main
// symbol is an error, malformed comparison symbols are skipped.
func SymbolsValidator(symbol, compare string) ([]string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, ErrSymbolEmpty
	}
	if !symbolRe.MatchString(symbol) {
		return nil, ErrSymbolInvalid
	}

	all := []string{symbol}
	seen := map[string]bool{symbol: true}

	for _, s := range strings.Split(compare, ",") {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		if !symbolRe.MatchString(s) {
			zap.L().Debug("Skipping malformed comparison symbol", zap.String("symbol", s))
			continue
		}

		seen[s] = true
		all = append(all, s)
	}

	if len(all) > 5 {
		return nil, ErrTooManyStocks
	}

	return all, nil
}
