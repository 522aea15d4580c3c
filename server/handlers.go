package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sig-0/btcrates/provider"
	"github.com/sig-0/btcrates/storage/types"
)

const (
	defaultLimit = int32(100)
	maxLimit     = int32(500)
)

var (
	errUnableToFetchRates      = errors.New("unable to fetch rates")
	errUnableToFetchCurrencies = errors.New("unable to fetch currencies")
	errUnableToFetchSources    = errors.New("unable to fetch sources")
	errUnableToQuote           = errors.New("unable to quote exchange rate")

	errInvalidLimit    = errors.New("invalid limit")
	errInvalidOffset   = errors.New("invalid offset")
	errInvalidType     = errors.New("invalid type")
	errInvalidCurrency = errors.New("invalid currency (must be 2-10 characters, A-Z or 0-9)")
)

var currencySymbolRegex = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// Quote fetches a live quote for the pair from the rate provider
func (s *Server) Quote(w http.ResponseWriter, r *http.Request) {
	var (
		baseParam   = chi.URLParam(r, "base")
		targetParam = chi.URLParam(r, "target")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the target currency
	target, err := parseCurrencySymbol(targetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	rate, err := s.provider.ExchangeRate(r.Context(), types.Pair{
		Base:   base,
		Target: target,
	})
	if err != nil {
		status := quoteErrorStatus(err)

		s.logger.Debug(
			"unable to quote exchange rate",
			"base", base,
			"target", target,
			"status", status,
			"err", err,
		)

		if status == http.StatusInternalServerError {
			err = errUnableToQuote
		}

		writeError(w, status, err)

		return
	}

	writeJSON(w, http.StatusOK, rate)
}

// quoteErrorStatus maps a provider rejection to its HTTP status
func quoteErrorStatus(err error) int {
	switch {
	case errors.Is(err, provider.ErrCatalogUnavailable),
		errors.Is(err, provider.ErrRateUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, provider.ErrUnsupportedBase),
		errors.Is(err, provider.ErrUnsupportedTerm):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) RatesForPair(w http.ResponseWriter, r *http.Request) {
	var (
		baseParam   = chi.URLParam(r, "base")
		targetParam = chi.URLParam(r, "target")

		limitParam  = r.URL.Query().Get("limit")
		offsetParam = r.URL.Query().Get("offset")

		sourceParam = r.URL.Query().Get("source")
		typeParam   = r.URL.Query().Get("type")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the target currency
	target, err := parseCurrencySymbol(targetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(limitParam, offsetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the source and rate type (optional)
	source, rateType, err := parseSourceAndType(sourceParam, typeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.RateQuery{
		Base:     base,
		Target:   &target,
		Source:   source,
		RateType: rateType,
		Limit:    limit,
		Offset:   offset,
	}

	s.writeLatestRates(w, r, q)
}

func (s *Server) RatesForBase(w http.ResponseWriter, r *http.Request) {
	var (
		baseParam = chi.URLParam(r, "base")

		limitParam  = r.URL.Query().Get("limit")
		offsetParam = r.URL.Query().Get("offset")

		sourceParam = r.URL.Query().Get("source")
		typeParam   = r.URL.Query().Get("type")
	)

	// Parse the base currency
	base, err := parseCurrencySymbol(baseParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the pagination settings
	limit, offset, err := parseLimitOffset(limitParam, offsetParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	// Parse the source and rate type (optional)
	source, rateType, err := parseSourceAndType(sourceParam, typeParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	q := &types.RateQuery{
		Base:     base,
		Target:   nil,
		Source:   source,
		RateType: rateType,
		Limit:    limit,
		Offset:   offset,
	}

	s.writeLatestRates(w, r, q)
}

func (s *Server) writeLatestRates(w http.ResponseWriter, r *http.Request, q *types.RateQuery) {
	page, err := s.storage.LatestRates(r.Context(), q)
	if err != nil {
		s.logger.Debug(
			"unable to fetch rates",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchRates,
		)

		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) Sources(w http.ResponseWriter, r *http.Request) {
	items, err := s.storage.ListSources(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch sources",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchSources,
		)

		return
	}

	resp := &SourcesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

// Currencies lists the currencies the rate provider can quote,
// or the currencies present in storage if there is no provider
func (s *Server) Currencies(w http.ResponseWriter, r *http.Request) {
	if s.provider != nil {
		writeJSON(w, http.StatusOK, &CurrenciesResponse{
			Results: s.provider.Currencies(),
		})

		return
	}

	items, err := s.storage.ListCurrencies(r.Context())
	if err != nil {
		s.logger.Debug(
			"unable to fetch currencies",
			"err", err,
		)

		writeError(
			w,
			http.StatusInternalServerError,
			errUnableToFetchCurrencies,
		)

		return
	}

	resp := &CurrenciesResponse{
		Results: items,
	}

	writeJSON(w, http.StatusOK, resp)
}

func parseLimitOffset(limitRaw, offsetRaw string) (int32, int64, error) {
	limit := defaultLimit

	if v := strings.TrimSpace(limitRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil || n < 0 {
			return 0, 0, errInvalidLimit
		}

		limit = int32(n)
	}

	if limit == 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	var offset int64

	if v := strings.TrimSpace(offsetRaw); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return 0, 0, errInvalidOffset
		}

		offset = n
	}

	return limit, offset, nil
}

func parseSourceAndType(sourceRaw, typeRaw string) (*types.Source, *types.RateType, error) {
	var src *types.Source

	if v := strings.TrimSpace(sourceRaw); v != "" {
		s := types.Source(v)

		src = &s
	}

	var rt *types.RateType

	if v := strings.TrimSpace(typeRaw); v != "" {
		t := types.RateType(strings.ToUpper(v))

		switch t {
		case types.RateTypeDEFERRED:
			rt = &t
		default:
			return nil, nil, errInvalidType
		}
	}

	return src, rt, nil
}

// parseCurrencySymbol upper-cases and validates a currency code
func parseCurrencySymbol(v string) (types.Currency, error) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if !currencySymbolRegex.MatchString(s) {
		return "", errInvalidCurrency
	}

	return types.Currency(s), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v) //nolint:errcheck // Fine to ignore
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := &ErrorResponse{
		Error: err.Error(),
	}

	writeJSON(w, status, resp)
}
