package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"

	"github.com/alphabill-org/econsec/engine"
	"github.com/alphabill-org/econsec/moneyflow"
	"github.com/alphabill-org/econsec/record"
	"github.com/alphabill-org/econsec/risk"
	"github.com/alphabill-org/econsec/types"
	"github.com/alphabill-org/econsec/validators"
)

type (
	riskEngine interface {
		Evaluate(ctx context.Context, p *risk.Parameters) (risk.Score, error)
		Costs(ctx context.Context, p *risk.Parameters, customPenaltyConfig bool) (*engine.CostsResult, error)
		CreateNetwork(ctx context.Context, req *engine.CreateNetworkRequest) (*engine.CreateNetworkResult, error)
		Network(id string) (*record.NetworkRecord, error)
		Networks() ([]*record.NetworkRecord, error)
		RouteTaskPayment(ctx context.Context, networkID string, payment types.Amount) (*moneyflow.TaskPaymentRouting, error)
		RouteCreationFee(ctx context.Context, fee types.Amount, creator common.Address, cfg *moneyflow.Config) (*moneyflow.CreationFeeRouting, error)
		CalculateUsageCut(ctx context.Context, payment types.Amount, cfg *moneyflow.Config) (*moneyflow.TaskPaymentRouting, error)
		SinksAddress() common.Address
		TrackValidatorRisk(ctx context.Context, validator common.Address, score float64) error
		DetectCorrelation(ctx context.Context, a, b common.Address) (*validators.Correlation, error)
		ScanValidator(ctx context.Context, validator common.Address) ([]validators.Correlation, error)
		HasHighCorrelation(validator common.Address, threshold float64) bool
		Correlations(validator common.Address) []validators.Correlation
		RelativeRisk(validator common.Address) float64
		Distribution() validators.Distribution
	}

	riskAPI struct {
		engine riskEngine
		rw     *responseWriter
	}

	CostsRequest struct {
		Parameters          *risk.Parameters `json:"parameters"`
		CustomPenaltyConfig bool             `json:"customPenaltyConfig"`
	}

	PaymentRequest struct {
		Payment types.Amount `json:"payment"`
	}

	CreationFeeRequest struct {
		Config  *moneyflow.Config `json:"config"`
		Fee     types.Amount      `json:"fee"`
		Creator common.Address    `json:"creator"`
	}

	UsageCutRequest struct {
		Config  *moneyflow.Config `json:"config"`
		Payment types.Amount      `json:"payment"`
	}

	SinksResponse struct {
		Address common.Address `json:"address"`
	}

	ObservationRequest struct {
		Score *float64 `json:"score"`
	}

	RelativeRiskResponse struct {
		Validator    common.Address `json:"validator"`
		RelativeRisk float64        `json:"relativeRisk"`
	}

	HighCorrelationResponse struct {
		Validator       common.Address           `json:"validator"`
		HighCorrelation bool                     `json:"highCorrelation"`
		Correlations    []validators.Correlation `json:"correlations"`
	}

	ScanResponse struct {
		Validator common.Address           `json:"validator"`
		Flagged   []validators.Correlation `json:"flagged"`
	}
)

/*
RiskEndpoints registers the risk evaluation, network, money flow and
validator analysis endpoints of the engine.
*/
func RiskEndpoints(e riskEngine, log *slog.Logger) RegistrarFunc {
	api := &riskAPI{engine: e, rw: &responseWriter{log: log}}
	return func(r *mux.Router) {
		r.HandleFunc("/risk/evaluate", api.evaluate).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/risk/costs", api.costs).Methods(http.MethodPost, http.MethodOptions)

		r.HandleFunc("/networks", api.createNetwork).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/networks", api.listNetworks).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/networks/{id}", api.getNetwork).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/networks/{id}/payments", api.routeTaskPayment).Methods(http.MethodPost, http.MethodOptions)

		r.HandleFunc("/moneyflow/validate", api.validateMoneyFlow).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/moneyflow/creation-fee", api.routeCreationFee).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/moneyflow/usage-cut", api.usageCut).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/moneyflow/sinks", api.sinks).Methods(http.MethodGet, http.MethodOptions)

		r.HandleFunc("/validators/distribution", api.distribution).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/validators/{address}/observations", api.trackObservation).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/validators/{address}/scan", api.scan).Methods(http.MethodPost, http.MethodOptions)
		r.HandleFunc("/validators/{address}/correlation/{other}", api.correlation).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/validators/{address}/relative", api.relativeRisk).Methods(http.MethodGet, http.MethodOptions)
		r.HandleFunc("/validators/{address}/high-correlation", api.highCorrelation).Methods(http.MethodGet, http.MethodOptions)
	}
}

func (api *riskAPI) evaluate(w http.ResponseWriter, r *http.Request) {
	p := &risk.Parameters{}
	if !api.decode(w, r, p) {
		return
	}
	score, err := api.engine.Evaluate(r.Context(), p)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, score)
}

func (api *riskAPI) costs(w http.ResponseWriter, r *http.Request) {
	req := &CostsRequest{}
	if !api.decode(w, r, req) {
		return
	}
	res, err := api.engine.Costs(r.Context(), req.Parameters, req.CustomPenaltyConfig)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, res)
}

func (api *riskAPI) createNetwork(w http.ResponseWriter, r *http.Request) {
	req := &engine.CreateNetworkRequest{}
	if !api.decode(w, r, req) {
		return
	}
	res, err := api.engine.CreateNetwork(r.Context(), req)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.writeResponse(w, r, http.StatusCreated, res)
}

func (api *riskAPI) listNetworks(w http.ResponseWriter, r *http.Request) {
	recs, err := api.engine.Networks()
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []*record.NetworkRecord{}
	}
	api.rw.ok(w, r, recs)
}

func (api *riskAPI) getNetwork(w http.ResponseWriter, r *http.Request) {
	rec, err := api.engine.Network(mux.Vars(r)["id"])
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, rec)
}

func (api *riskAPI) routeTaskPayment(w http.ResponseWriter, r *http.Request) {
	req := &PaymentRequest{}
	if !api.decode(w, r, req) {
		return
	}
	rt, err := api.engine.RouteTaskPayment(r.Context(), mux.Vars(r)["id"], req.Payment)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, rt)
}

/*
validateMoneyFlow always responds with status 200, validity of the config is
reported in the body.
*/
func (api *riskAPI) validateMoneyFlow(w http.ResponseWriter, r *http.Request) {
	cfg := &moneyflow.Config{}
	if !api.decode(w, r, cfg) {
		return
	}
	api.rw.ok(w, r, moneyflow.ValidateMoneyFlowConfig(cfg))
}

func (api *riskAPI) routeCreationFee(w http.ResponseWriter, r *http.Request) {
	req := &CreationFeeRequest{}
	if !api.decode(w, r, req) {
		return
	}
	rt, err := api.engine.RouteCreationFee(r.Context(), req.Fee, req.Creator, req.Config)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, rt)
}

func (api *riskAPI) usageCut(w http.ResponseWriter, r *http.Request) {
	req := &UsageCutRequest{}
	if !api.decode(w, r, req) {
		return
	}
	rt, err := api.engine.CalculateUsageCut(r.Context(), req.Payment, req.Config)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, rt)
}

func (api *riskAPI) sinks(w http.ResponseWriter, r *http.Request) {
	api.rw.ok(w, r, SinksResponse{Address: api.engine.SinksAddress()})
}

func (api *riskAPI) trackObservation(w http.ResponseWriter, r *http.Request) {
	v, ok := api.address(w, r, "address")
	if !ok {
		return
	}
	req := &ObservationRequest{}
	if !api.decode(w, r, req) {
		return
	}
	if req.Score == nil {
		api.rw.invalidParam(w, r, "score", errors.New("parameter is required"))
		return
	}
	if err := api.engine.TrackValidatorRisk(r.Context(), v, *req.Score); err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *riskAPI) scan(w http.ResponseWriter, r *http.Request) {
	v, ok := api.address(w, r, "address")
	if !ok {
		return
	}
	flagged, err := api.engine.ScanValidator(r.Context(), v)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	if flagged == nil {
		flagged = []validators.Correlation{}
	}
	api.rw.ok(w, r, ScanResponse{Validator: v, Flagged: flagged})
}

func (api *riskAPI) correlation(w http.ResponseWriter, r *http.Request) {
	a, ok := api.address(w, r, "address")
	if !ok {
		return
	}
	b, ok := api.address(w, r, "other")
	if !ok {
		return
	}
	c, err := api.engine.DetectCorrelation(r.Context(), a, b)
	if err != nil {
		api.rw.writeError(w, r, err)
		return
	}
	api.rw.ok(w, r, c)
}

func (api *riskAPI) relativeRisk(w http.ResponseWriter, r *http.Request) {
	v, ok := api.address(w, r, "address")
	if !ok {
		return
	}
	api.rw.ok(w, r, RelativeRiskResponse{Validator: v, RelativeRisk: api.engine.RelativeRisk(v)})
}

/*
highCorrelation accepts optional "threshold" query parameter, when it is
not given the configured default threshold is used.
*/
func (api *riskAPI) highCorrelation(w http.ResponseWriter, r *http.Request) {
	v, ok := api.address(w, r, "address")
	if !ok {
		return
	}
	var threshold float64
	if s := r.URL.Query().Get("threshold"); s != "" {
		var err error
		if threshold, err = strconv.ParseFloat(s, 64); err != nil || threshold <= 0 || threshold > 1 {
			api.rw.invalidParam(w, r, "threshold", fmt.Errorf("must be number in range (0, 1], got %q", s))
			return
		}
	}
	corr := api.engine.Correlations(v)
	if corr == nil {
		corr = []validators.Correlation{}
	}
	api.rw.ok(w, r, HighCorrelationResponse{
		Validator:       v,
		HighCorrelation: api.engine.HasHighCorrelation(v, threshold),
		Correlations:    corr,
	})
}

func (api *riskAPI) distribution(w http.ResponseWriter, r *http.Request) {
	api.rw.ok(w, r, api.engine.Distribution())
}

/*
decode parses JSON request body into "v". When false is returned the error
response has been already written.
*/
func (api *riskAPI) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			api.rw.errorResponse(w, r, http.StatusRequestEntityTooLarge, fmt.Errorf("request body too large, limit is %d bytes", mbe.Limit))
			return false
		}
		api.rw.errorResponse(w, r, http.StatusBadRequest, fmt.Errorf("failed to parse request body: %w", err))
		return false
	}
	return true
}

func (api *riskAPI) address(w http.ResponseWriter, r *http.Request, name string) (common.Address, bool) {
	s := mux.Vars(r)[name]
	if !common.IsHexAddress(s) {
		api.rw.invalidParam(w, r, name, fmt.Errorf("%q is not a hex encoded address", s))
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}
