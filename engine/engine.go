/*
Package engine composes risk evaluation, cost calculation, money flow routing
and validator risk analysis into the flows used by the API and CLI.

Invalid user input is reported as *types.ValidationError. Invariant
violations are logged on ERROR level, counted and returned to the caller,
they always abort the flow.
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/metric"

	"github.com/alphabill-org/econsec/invariant"
	"github.com/alphabill-org/econsec/keyvaluedb"
	"github.com/alphabill-org/econsec/logger"
	"github.com/alphabill-org/econsec/moneyflow"
	"github.com/alphabill-org/econsec/observability"
	"github.com/alphabill-org/econsec/record"
	"github.com/alphabill-org/econsec/risk"
	"github.com/alphabill-org/econsec/settlement"
	"github.com/alphabill-org/econsec/types"
	"github.com/alphabill-org/econsec/validators"
)

const (
	flowCreationFee = "creation_fee"
	flowUsageCut    = "usage_cut"

	subjectNetworkRequest = "network creation request"
	subjectRiskParameters = "risk parameters"
)

type (
	Observability interface {
		Meter(name string, opts ...metric.MeterOption) metric.Meter
		Logger() *slog.Logger
	}

	Engine struct {
		costs    *risk.CostCalculator
		router   *moneyflow.Router
		history  *validators.HistoryStore
		detector *validators.CorrelationDetector
		relative *validators.RelativeRiskEngine
		records  *record.Store
		db       keyvaluedb.KeyValueDB
		conf     *configuration
		log      *slog.Logger

		evalCnt        metric.Int64Counter
		riskScore      metric.Float64Histogram
		violationCnt   metric.Int64Counter
		correlationCnt metric.Int64Counter
		routedCnt      metric.Int64Counter
	}

	CreateNetworkRequest struct {
		ID         string           `json:"id"`
		Creator    common.Address   `json:"creator"`
		Parameters risk.Parameters  `json:"parameters"`
		MoneyFlow  moneyflow.Config `json:"moneyFlow"`
		// Creator supplies own penalty configuration which costs extra.
		CustomPenaltyConfig bool `json:"customPenaltyConfig"`
	}

	CreateNetworkResult struct {
		Record     *record.NetworkRecord        `json:"record"`
		Deployment *settlement.DeploymentParams `json:"deployment"`
	}

	CostsResult struct {
		Score risk.Score         `json:"score"`
		Costs risk.RequiredCosts `json:"costs"`
	}
)

func New(observe Observability, opts ...Option) (*Engine, error) {
	conf, err := loadConfiguration(opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	costs, err := risk.NewCostCalculator(risk.WithBaseCreationFee(conf.baseCreationFee), risk.WithPenaltyConfigFee(conf.penaltyConfigFee))
	if err != nil {
		return nil, fmt.Errorf("creating cost calculator: %w", err)
	}
	records, err := record.NewStore(conf.db)
	if err != nil {
		return nil, fmt.Errorf("creating network record store: %w", err)
	}

	history := validators.NewHistoryStore()
	e := &Engine{
		costs:    costs,
		router:   moneyflow.NewRouter(conf.sinks),
		history:  history,
		detector: validators.NewCorrelationDetector(history, validators.WithClock(conf.now)),
		relative: validators.NewRelativeRiskEngine(history),
		records:  records,
		db:       conf.db,
		conf:     conf,
		log:      logger.OrNOP(observe.Logger()),
	}
	if err := e.initMetrics(observe); err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}
	return e, nil
}

func (e *Engine) initMetrics(observe Observability) (err error) {
	m := observe.Meter("engine")

	e.evalCnt, err = m.Int64Counter("risk.evaluations", metric.WithDescription("Number of risk evaluations by category"))
	if err != nil {
		return fmt.Errorf("creating counter for risk evaluations: %w", err)
	}
	e.riskScore, err = m.Float64Histogram("risk.score", metric.WithDescription("Total risk of evaluated parameters"))
	if err != nil {
		return fmt.Errorf("creating histogram for risk score: %w", err)
	}
	e.violationCnt, err = m.Int64Counter("invariant.violations", metric.WithDescription("Number of invariant violations by kind"))
	if err != nil {
		return fmt.Errorf("creating counter for invariant violations: %w", err)
	}
	e.correlationCnt, err = m.Int64Counter("correlation.detected", metric.WithDescription("Number of correlated validator pairs detected by severity"))
	if err != nil {
		return fmt.Errorf("creating counter for detected correlations: %w", err)
	}
	e.routedCnt, err = m.Int64Counter("moneyflow.routed", metric.WithDescription("Number of money flow routings by flow and status"))
	if err != nil {
		return fmt.Errorf("creating counter for money flow routings: %w", err)
	}
	return nil
}

/*
Evaluate scores the risk parameters. Shape of the parameters is not
validated, unparseable amounts count as zero.
*/
func (e *Engine) Evaluate(ctx context.Context, p *risk.Parameters) (risk.Score, error) {
	const origin = "Engine.Evaluate"
	if p == nil {
		return risk.Score{}, errors.New("risk parameters are nil")
	}
	score := risk.Evaluate(*p)
	if err := invariant.CheckRiskScoreBounds(origin, score.TotalRisk); err != nil {
		return risk.Score{}, e.violation(ctx, err)
	}
	e.evalCnt.Add(ctx, 1, observability.Attrs(observability.Category(string(score.Category))))
	e.riskScore.Record(ctx, score.TotalRisk)
	return score, nil
}

/*
Costs evaluates the parameters and calculates the costs for the network.
Unlike Evaluate the parameters must be valid.
*/
func (e *Engine) Costs(ctx context.Context, p *risk.Parameters, customPenaltyConfig bool) (*CostsResult, error) {
	if err := risk.ValidateParameters(p).Err(subjectRiskParameters); err != nil {
		return nil, err
	}
	score, err := e.Evaluate(ctx, p)
	if err != nil {
		return nil, err
	}
	costs, err := e.costs.Calculate(score, types.ParseAmountOrZero(p.MaxPayoutPerTask), customPenaltyConfig)
	if err != nil {
		return nil, e.violation(ctx, err)
	}
	return &CostsResult{Score: score, Costs: costs}, nil
}

/*
CreateNetwork runs the network creation flow: the request is validated,
risk evaluated, costs calculated, the creation fee routed and finally the
network record persisted. The record is write-once, creating network with
an existing ID fails with record.ErrRecordExists.
*/
func (e *Engine) CreateNetwork(ctx context.Context, req *CreateNetworkRequest) (*CreateNetworkResult, error) {
	if req == nil {
		return nil, errors.New("network creation request is nil")
	}
	vr := types.NewValidationResult()
	if err := record.CheckID(req.ID); err != nil {
		vr.Addf("%s", err)
	}
	if req.Creator == (common.Address{}) {
		vr.Addf("creator address is missing")
	}
	vr.Merge("parameters", risk.ValidateParameters(&req.Parameters))
	vr.Merge("moneyFlow", moneyflow.ValidateMoneyFlowConfig(&req.MoneyFlow))
	if err := vr.Err(subjectNetworkRequest); err != nil {
		return nil, err
	}

	log := e.log.With(logger.Network(req.ID))
	cr, err := e.Costs(ctx, &req.Parameters, req.CustomPenaltyConfig)
	if err != nil {
		return nil, fmt.Errorf("calculating costs: %w", err)
	}

	routing, err := e.routeCreationFee(ctx, cr.Costs.CreationFee, req.Creator, &req.MoneyFlow)
	if err != nil {
		return nil, fmt.Errorf("routing creation fee: %w", err)
	}

	deployment, err := settlement.NewDeploymentParams(cr.Costs, &req.MoneyFlow, e.router.PurposeBoundSinksAddress())
	if err != nil {
		return nil, fmt.Errorf("creating deployment parameters: %w", err)
	}

	rec := &record.NetworkRecord{
		ID:                 req.ID,
		Creator:            req.Creator,
		Parameters:         req.Parameters,
		Score:              cr.Score,
		Costs:              cr.Costs,
		MoneyFlow:          req.MoneyFlow,
		CreationFeeRouting: routing,
		CreatedAt:          e.conf.now().UTC(),
	}
	if err := e.records.Create(rec); err != nil {
		return nil, fmt.Errorf("storing network record: %w", err)
	}
	log.InfoContext(ctx, fmt.Sprintf("network created, risk %s, creation fee %s", &cr.Score, cr.Costs.CreationFee))
	return &CreateNetworkResult{Record: rec, Deployment: deployment}, nil
}

// Network returns the record of the network, error wraps record.ErrNotFound when it doesn't exist.
func (e *Engine) Network(id string) (*record.NetworkRecord, error) {
	return e.records.Get(id)
}

func (e *Engine) Networks() ([]*record.NetworkRecord, error) {
	return e.records.List()
}

/*
RouteTaskPayment splits the task payment according to the money flow config
recorded for the network.
*/
func (e *Engine) RouteTaskPayment(ctx context.Context, networkID string, payment types.Amount) (*moneyflow.TaskPaymentRouting, error) {
	rec, err := e.records.Get(networkID)
	if err != nil {
		return nil, err
	}
	if payment.IsNegative() {
		vr := types.NewValidationResult()
		vr.Addf("task payment must not be negative, got %s", payment)
		return nil, vr.Err("task payment")
	}
	rt, err := e.calculateUsageCut(ctx, payment, &rec.MoneyFlow)
	if err != nil {
		return nil, err
	}
	if rt.Reduced {
		e.log.WarnContext(ctx, "minimum cuts exceed task payment, cuts were reduced", logger.Network(networkID), logger.Data(rt))
	}
	return rt, nil
}

/*
RouteCreationFee validates the config and splits the fee according to it.
*/
func (e *Engine) RouteCreationFee(ctx context.Context, fee types.Amount, creator common.Address, cfg *moneyflow.Config) (*moneyflow.CreationFeeRouting, error) {
	vr := moneyflow.ValidateMoneyFlowConfig(cfg)
	if fee.IsNegative() {
		vr.Addf("creation fee must not be negative, got %s", fee)
	}
	if err := vr.Err(moneyflow.ValidationSubject); err != nil {
		return nil, err
	}
	return e.routeCreationFee(ctx, fee, creator, cfg)
}

/*
CalculateUsageCut validates the config and splits the task payment according to it.
*/
func (e *Engine) CalculateUsageCut(ctx context.Context, payment types.Amount, cfg *moneyflow.Config) (*moneyflow.TaskPaymentRouting, error) {
	vr := moneyflow.ValidateMoneyFlowConfig(cfg)
	if payment.IsNegative() {
		vr.Addf("task payment must not be negative, got %s", payment)
	}
	if err := vr.Err(moneyflow.ValidationSubject); err != nil {
		return nil, err
	}
	return e.calculateUsageCut(ctx, payment, cfg)
}

// SinksAddress returns the receiver of the purpose bound sinks share.
func (e *Engine) SinksAddress() common.Address {
	return e.router.PurposeBoundSinksAddress()
}

func (e *Engine) routeCreationFee(ctx context.Context, fee types.Amount, creator common.Address, cfg *moneyflow.Config) (*moneyflow.CreationFeeRouting, error) {
	rt, err := e.router.RouteCreationFee(fee, creator, cfg)
	e.routedCnt.Add(ctx, 1, observability.Attrs(observability.Flow(flowCreationFee), observability.ErrStatus(err)))
	if err != nil {
		return nil, e.violation(ctx, err)
	}
	return rt, nil
}

func (e *Engine) calculateUsageCut(ctx context.Context, payment types.Amount, cfg *moneyflow.Config) (*moneyflow.TaskPaymentRouting, error) {
	rt, err := e.router.CalculateUsageCut(payment, cfg)
	e.routedCnt.Add(ctx, 1, observability.Attrs(observability.Flow(flowUsageCut), observability.ErrStatus(err)))
	if err != nil {
		return nil, e.violation(ctx, err)
	}
	return rt, nil
}

/*
violation logs and counts invariant violation and returns the error
unchanged. Errors which are not invariant violations are returned as is.
*/
func (e *Engine) violation(ctx context.Context, err error) error {
	var v invariant.Violation
	if !errors.As(err, &v) {
		return err
	}
	kind := invariant.Kind(err)
	e.violationCnt.Add(ctx, 1, observability.Attrs(observability.Kind(kind)))
	e.log.ErrorContext(ctx, "invariant violation", logger.Error(err), logger.Origin(v.Origin()), logger.Data(kind))
	return err
}
