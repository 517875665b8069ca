package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitos/overseas_trade_engine/internal/domain"
	"go.uber.org/zap"
)

const (
	KISBaseURL = "https://openapi.koreainvestment.com:9443"

	pathPrice       = "/uapi/overseas-price/v1/quotations/price"
	pathAskingPrice = "/uapi/overseas-price/v1/quotations/inquire-asking-price"
	pathOrder       = "/uapi/overseas-stock/v1/trading/order"
	pathBalance     = "/uapi/overseas-stock/v1/trading/inquire-balance"
	pathMargin      = "/uapi/overseas-stock/v1/trading/foreign-margin"
	pathPeriodTrans = "/uapi/overseas-stock/v1/trading/inquire-period-trans"

	trPrice       = "HHDFS00000300"
	trAskingPrice = "HHDFS76200100"
	trBalance     = "TTTS3012R"
	trMargin      = "TTTC2101R"
	trPeriodTrans = "CTOS4001R"

	buySideCode    = "02"
	rateLimitCode  = "EGW00201"
	defaultTimeout = 10 * time.Second
)

// ClientConfig holds the credentials and account used by KISClient.
type ClientConfig struct {
	BaseURL        string
	AppKey         string
	AppSecret      string
	AccountNo      string
	AccountProduct string
	CustomerType   string
	BalanceVenue   domain.Venue
	Currency       string
	Timeout        time.Duration
}

// KISClient talks to the brokerage REST API with a bearer token.
type KISClient struct {
	cfg    ClientConfig
	token  string
	client *http.Client
	logger *zap.Logger
}

func NewKISClient(cfg ClientConfig, accessToken string, logger *zap.Logger) *KISClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = KISBaseURL
	}
	if cfg.CustomerType == "" {
		cfg.CustomerType = "P"
	}
	if cfg.BalanceVenue == "" {
		cfg.BalanceVenue = domain.VenueNASDAQ
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &KISClient{
		cfg:    cfg,
		token:  accessToken,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// envelope is the common response wrapper.
type envelope struct {
	ReturnCode  string `json:"rt_cd"`
	MessageCode string `json:"msg_cd"`
	Message     string `json:"msg1"`
}

func (e envelope) err(op string) error {
	if e.ReturnCode == "0" {
		return nil
	}
	if e.MessageCode == rateLimitCode {
		return fmt.Errorf("%s: %s: %w", op, e.Message, domain.ErrRateLimited)
	}
	return fmt.Errorf("%s: rt_cd=%s msg_cd=%s %s: %w", op, e.ReturnCode, e.MessageCode, e.Message, domain.ErrProvider)
}

func (k *KISClient) headers(req *http.Request, trID string) {
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("authorization", "Bearer "+k.token)
	req.Header.Set("appkey", k.cfg.AppKey)
	req.Header.Set("appsecret", k.cfg.AppSecret)
	req.Header.Set("tr_id", trID)
	req.Header.Set("custtype", k.cfg.CustomerType)
}

// get performs a GET and returns the body for 2xx responses.
func (k *KISClient) get(ctx context.Context, path, trID string, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	k.headers(req, trID)

	k.logger.Debug("GET", zap.String("path", path), zap.String("tr_id", trID), zap.String("params", params.Encode()))

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("http %d: %w", resp.StatusCode, domain.ErrRateLimited)
	}
	if resp.StatusCode >= 400 {
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.MessageCode == rateLimitCode {
			return nil, env.err(path)
		}
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	k.logger.Debug("Response", zap.String("path", path), zap.ByteString("body", body))
	return body, nil
}

func (k *KISClient) FetchLastPrice(ctx context.Context, venue domain.Venue, symbol string) (string, error) {
	params := url.Values{"AUTH": {""}, "EXCD": {venue.QuoteCode()}, "SYMB": {symbol}}
	body, err := k.get(ctx, pathPrice, trPrice, params)
	if err != nil {
		return "", err
	}

	var result struct {
		envelope
		Output *struct {
			Last string `json:"last"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if err := result.err("price"); err != nil {
		return "", err
	}
	if result.Output == nil || result.Output.Last == "" {
		return "", fmt.Errorf("price: no last price for %s: %w", symbol, domain.ErrNotFound)
	}
	return result.Output.Last, nil
}

func (k *KISClient) FetchAskDepth(ctx context.Context, venue domain.Venue, symbol string) ([]domain.RawAskLevel, error) {
	params := url.Values{"AUTH": {""}, "EXCD": {venue.QuoteCode()}, "SYMB": {strings.ToUpper(symbol)}}
	body, err := k.get(ctx, pathAskingPrice, trAskingPrice, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		envelope
		Output2 map[string]json.RawMessage `json:"output2"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if err := result.err("asking price"); err != nil {
		return nil, err
	}
	if len(result.Output2) == 0 {
		return nil, fmt.Errorf("asking price: no depth for %s: %w", symbol, domain.ErrNotFound)
	}

	levels := make([]domain.RawAskLevel, 0, domain.MaxLadderDepth)
	for i := 1; i <= domain.MaxLadderDepth; i++ {
		levels = append(levels, domain.RawAskLevel{
			Price:  rawString(result.Output2[fmt.Sprintf("pask%d", i)]),
			Volume: rawString(result.Output2[fmt.Sprintf("vask%d", i)]),
		})
	}
	return levels, nil
}

// rawString accepts either a JSON string or a bare number.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// SendOrder posts an order. Only transport failures produce an error; any
// answer from the provider, including HTTP error statuses, becomes a reply.
func (k *KISClient) SendOrder(ctx context.Context, trID string, payload domain.OrderPayload, hash string) (*domain.VenueReply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.BaseURL+pathOrder, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	k.headers(req, trID)
	req.Header.Set("hashkey", hash)

	k.logger.Debug("Order request",
		zap.String("tr_id", trID),
		zap.String("venue", payload.ExchangeCode),
		zap.ByteString("payload", body))

	resp, err := k.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	reply := &domain.VenueReply{HTTPStatus: resp.StatusCode, Body: string(respBody)}

	var result struct {
		envelope
		Output struct {
			OrderNo string `json:"ODNO"`
		} `json:"output"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 400 {
			reply.ReturnCode = strconv.Itoa(resp.StatusCode)
			reply.Message = strings.TrimSpace(string(respBody))
			return reply, nil
		}
		return nil, fmt.Errorf("order response: %w", err)
	}

	reply.ReturnCode = result.ReturnCode
	reply.MessageCode = result.MessageCode
	reply.Message = result.Message
	reply.OrderID = result.Output.OrderNo
	if resp.StatusCode >= 400 && reply.ReturnCode == "0" {
		reply.ReturnCode = strconv.Itoa(resp.StatusCode)
	}

	k.logger.Debug("Order response", zap.ByteString("body", respBody))
	return reply, nil
}

func (k *KISClient) GetHoldings(ctx context.Context) ([]domain.Position, error) {
	params := url.Values{
		"CANO":           {k.cfg.AccountNo},
		"ACNT_PRDT_CD":   {k.cfg.AccountProduct},
		"OVRS_EXCG_CD":   {k.cfg.BalanceVenue.String()},
		"TR_CRCY_CD":     {k.cfg.Currency},
		"CTX_AREA_FK200": {""},
		"CTX_AREA_NK200": {""},
	}
	body, err := k.get(ctx, pathBalance, trBalance, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		envelope
		Output1 []struct {
			Symbol       string `json:"ovrs_pdno"`
			AvgPrice     string `json:"pchs_avg_pric"`
			Quantity     string `json:"ovrs_cblc_qty"`
			CurrentPrice string `json:"now_pric2"`
		} `json:"output1"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if err := result.err("balance"); err != nil {
		return nil, err
	}

	positions := make([]domain.Position, 0, len(result.Output1))
	for _, item := range result.Output1 {
		qty, err := strconv.ParseInt(strings.TrimSpace(item.Quantity), 10, 64)
		if err != nil {
			k.logger.Warn("Invalid holding quantity", zap.String("symbol", item.Symbol), zap.String("raw", item.Quantity))
			qty = 0
		}
		positions = append(positions, domain.Position{
			Symbol:       item.Symbol,
			EntryPrice:   k.decimalOrZero(item.Symbol, "pchs_avg_pric", item.AvgPrice),
			Quantity:     qty,
			CurrentPrice: k.decimalOrZero(item.Symbol, "now_pric2", item.CurrentPrice),
		})
	}
	return positions, nil
}

func (k *KISClient) GetMarginBalances(ctx context.Context) ([]domain.CurrencyBalance, error) {
	params := url.Values{
		"CANO":         {k.cfg.AccountNo},
		"ACNT_PRDT_CD": {k.cfg.AccountProduct},
	}
	body, err := k.get(ctx, pathMargin, trMargin, params)
	if err != nil {
		return nil, err
	}

	var result struct {
		envelope
		Output []struct {
			Nation           string `json:"natn_name"`
			Currency         string `json:"crcy_cd"`
			Deposit          string `json:"frcr_dncl_amt1"`
			GeneralOrderable string `json:"frcr_gnrl_ord_psbl_amt"`
			Orderable        string `json:"frcr_ord_psbl_amt1"`
			IntegratedOrder  string `json:"itgr_ord_psbl_amt"`
			ExchangeRate     string `json:"bass_exrt"`
			RealizedPnL      string `json:"ovrs_rlzt_pfls_amt"`
		} `json:"output"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if err := result.err("foreign margin"); err != nil {
		return nil, err
	}

	balances := make([]domain.CurrencyBalance, 0, len(result.Output))
	for _, item := range result.Output {
		if item.Nation == "" || item.Currency == "" {
			continue
		}
		balances = append(balances, domain.CurrencyBalance{
			Nation:           item.Nation,
			Currency:         item.Currency,
			Deposit:          k.decimalOrZero(item.Currency, "frcr_dncl_amt1", item.Deposit),
			GeneralOrderable: k.decimalOrZero(item.Currency, "frcr_gnrl_ord_psbl_amt", item.GeneralOrderable),
			Orderable:        k.decimalOrZero(item.Currency, "frcr_ord_psbl_amt1", item.Orderable),
			IntegratedOrder:  k.decimalOrZero(item.Currency, "itgr_ord_psbl_amt", item.IntegratedOrder),
			ExchangeRate:     k.decimalOrZero(item.Currency, "bass_exrt", item.ExchangeRate),
			RealizedPnL:      k.decimalOrZero(item.Currency, "ovrs_rlzt_pfls_amt", item.RealizedPnL),
		})
	}
	return balances, nil
}

// LatestBuyDate returns the most recent buy trade date within the last year.
func (k *KISClient) LatestBuyDate(ctx context.Context, symbol string, today time.Time) (time.Time, error) {
	params := url.Values{
		"CANO":            {k.cfg.AccountNo},
		"ACNT_PRDT_CD":    {k.cfg.AccountProduct},
		"ERLM_STRT_DT":    {today.AddDate(0, 0, -365).Format("20060102")},
		"ERLM_END_DT":     {today.Format("20060102")},
		"OVRS_EXCG_CD":    {""},
		"PDNO":            {symbol},
		"SLL_BUY_DVSN_CD": {buySideCode},
		"LOAN_DVSN_CD":    {""},
		"CTX_AREA_FK100":  {""},
		"CTX_AREA_NK100":  {""},
	}
	body, err := k.get(ctx, pathPeriodTrans, trPeriodTrans, params)
	if err != nil {
		return time.Time{}, err
	}

	var result struct {
		envelope
		Output1 []struct {
			TradeDate string `json:"trad_dt"`
			SideCode  string `json:"sll_buy_dvsn_cd"`
		} `json:"output1"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return time.Time{}, err
	}
	if err := result.err("period trades"); err != nil {
		return time.Time{}, err
	}

	latest := ""
	for _, item := range result.Output1 {
		if item.SideCode != buySideCode {
			continue
		}
		// yyyymmdd compares correctly as a string
		if item.TradeDate > latest {
			latest = item.TradeDate
		}
	}
	if latest == "" {
		return time.Time{}, fmt.Errorf("no buy trades for %s: %w", symbol, domain.ErrNotFound)
	}

	d, err := time.ParseInLocation("20060102", latest, today.Location())
	if err != nil {
		return time.Time{}, errors.Join(fmt.Errorf("bad trad_dt %q for %s: %w", latest, symbol, domain.ErrNotFound), err)
	}
	return d, nil
}

func (k *KISClient) decimalOrZero(owner, field, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		k.logger.Warn("Invalid numeric field", zap.String("owner", owner), zap.String("field", field), zap.String("raw", raw))
		return decimal.Zero
	}
	return d
}

var _ domain.Broker = (*KISClient)(nil)
